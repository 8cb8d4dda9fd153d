package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/blockbingo/game/service"
)

const sessionExt = ".json"

// FilePersistence stores each session as <id>.json in one directory. Ids are
// lowercased so lookups ignore case like the manager does.
type FilePersistence struct {
	dir string
}

// NewFilePersistence creates dir if needed
func NewFilePersistence(dir string) (*FilePersistence, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	return &FilePersistence{dir: dir}, nil
}

func (fp *FilePersistence) path(id string) string {
	return filepath.Join(fp.dir, strings.ToLower(id)+sessionExt)
}

// Save writes the session to a temp file and renames it into place, so a
// crash never leaves a half written session behind
func (fp *FilePersistence) Save(sess *service.Session) error {
	if sess == nil {
		return fmt.Errorf("session cannot be nil")
	}

	payload, err := json.MarshalIndent(PersistedSessionData{
		ID:             sess.ID,
		CourseName:     sess.CourseName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Round:          sess.Round,
		Plans:          sess.Plans,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}

	tmp, err := os.CreateTemp(fp.dir, ".session-*")
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	if err := os.Rename(tmp.Name(), fp.path(sess.ID)); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

// Load reads a session back. The stored round must still build a valid board.
func (fp *FilePersistence) Load(id string) (*service.Session, error) {
	f, err := os.Open(fp.path(id))
	if os.IsNotExist(err) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	defer f.Close()

	var stored PersistedSessionData
	if err := json.NewDecoder(f).Decode(&stored); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	if _, err := stored.Round.Board(); err != nil {
		return nil, fmt.Errorf("session %s holds an invalid round: %w", id, err)
	}

	return &service.Session{
		ID:             stored.ID,
		CourseName:     stored.CourseName,
		Round:          stored.Round,
		Plans:          stored.Plans,
		CreatedAt:      stored.CreatedAt,
		LastAccessedAt: stored.LastAccessedAt,
	}, nil
}

// Delete removes the session file
func (fp *FilePersistence) Delete(id string) error {
	err := os.Remove(fp.path(id))
	if os.IsNotExist(err) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	return nil
}

// ListAll returns the ids of every session file
func (fp *FilePersistence) ListAll() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(fp.dir, "*"+sessionExt))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	if _, err := os.Stat(fp.dir); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, strings.TrimSuffix(filepath.Base(m), sessionExt))
	}
	return ids, nil
}

// Exists reports whether a session file is present
func (fp *FilePersistence) Exists(id string) bool {
	info, err := os.Stat(fp.path(id))
	return err == nil && !info.IsDir()
}
