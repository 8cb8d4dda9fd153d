// Package logging configures the go-logging backend shared by every package.
package logging

import (
	"io"
	"os"

	"github.com/op/go-logging"
)

var format = logging.MustStringFormatter(
	`%{color}%{time:15:04:05.000} %{module} %{shortfunc} ▶ %{level:.4s}%{color:reset} %{message}`,
)

var plainFormat = logging.MustStringFormatter(
	`%{time:15:04:05.000} %{module} %{shortfunc} ▶ %{level:.4s} %{message}`,
)

// DefaultLevel applies until Setup is called, so library callers and tests do
// not see debug output.
const DefaultLevel = "info"

func init() {
	Setup(DefaultLevel)
}

// MustGetLogger returns the named module logger
func MustGetLogger(module string) *logging.Logger {
	return logging.MustGetLogger(module)
}

// Setup installs a stderr backend at the given level ("debug", "info", ...).
// Unknown levels fall back to info.
func Setup(level string) {
	SetupWriter(os.Stderr, level, true)
}

// SetupWriter installs a backend writing to w. Color codes are only emitted
// when color is set.
func SetupWriter(w io.Writer, level string, color bool) {
	lvl, err := logging.LogLevel(level)
	if err != nil {
		lvl = logging.INFO
	}

	f := plainFormat
	if color {
		f = format
	}
	backend := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), f)
	leveled := logging.AddModuleLevel(backend)
	leveled.SetLevel(lvl, "")
	logging.SetBackend(leveled)
}
