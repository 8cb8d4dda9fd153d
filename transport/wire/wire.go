// Package wire frames robot instructions for the serial link.
//
// A frame is one type byte, one length byte and up to 255 value bytes. An
// instruction sequence is split over consecutive command frames; the last
// frame of a sequence is the first one shorter than MaxValue, so a sequence
// whose length is a multiple of MaxValue ends with an empty frame.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/wricardo/blockbingo/game/command"
)

// Frame types
const (
	TypeCommands byte = 0x01
	TypeError    byte = 0xC8
)

// MaxValue is the largest value a frame can carry
const MaxValue = 255

var (
	ErrFrameTooLong = errors.New("frame value too long")
	ErrUnknownType  = errors.New("unknown frame type")
	// ErrRemote reports an error frame sent by the peer
	ErrRemote = errors.New("remote error")
)

// Frame is one type-length-value record
type Frame struct {
	Type  byte
	Value []byte
}

// MarshalBinary implements encoding.BinaryMarshaler
func (f Frame) MarshalBinary() ([]byte, error) {
	if len(f.Value) > MaxValue {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLong, len(f.Value))
	}
	out := make([]byte, 0, 2+len(f.Value))
	out = append(out, f.Type, byte(len(f.Value)))
	return append(out, f.Value...), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. data must hold
// exactly one frame.
func (f *Frame) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("frame header: %w", io.ErrUnexpectedEOF)
	}
	n := int(data[1])
	if len(data)-2 < n {
		return fmt.Errorf("frame value: %w", io.ErrUnexpectedEOF)
	}
	if len(data)-2 > n {
		return fmt.Errorf("frame has %d trailing bytes", len(data)-2-n)
	}
	f.Type = data[0]
	f.Value = append([]byte(nil), data[2:]...)
	return nil
}

// Split cuts an instruction sequence into command frames
func Split(steps []command.Step) []Frame {
	data := command.Bytes(steps)
	frames := make([]Frame, 0, len(data)/MaxValue+1)
	for {
		n := len(data)
		if n > MaxValue {
			n = MaxValue
		}
		frames = append(frames, Frame{Type: TypeCommands, Value: data[:n]})
		data = data[n:]
		if n < MaxValue {
			return frames
		}
	}
}

// Encode returns the frames of an instruction sequence back to back
func Encode(steps []command.Step) []byte {
	var out []byte
	for _, f := range Split(steps) {
		// Split never builds an oversized frame
		b, _ := f.MarshalBinary()
		out = append(out, b...)
	}
	return out
}

// Writer writes frames to the serial link
type Writer struct {
	w *bufio.Writer
}

// NewWriter creates a frame writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteFrame writes and flushes one frame
func (w *Writer) WriteFrame(f Frame) error {
	b, err := f.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.Flush()
}

// WriteCommands writes an instruction sequence as command frames
func (w *Writer) WriteCommands(steps []command.Step) error {
	if _, err := w.w.Write(Encode(steps)); err != nil {
		return err
	}
	return w.w.Flush()
}

// WriteError sends an error frame. Long messages are truncated.
func (w *Writer) WriteError(msg string) error {
	if len(msg) > MaxValue {
		msg = msg[:MaxValue]
	}
	return w.WriteFrame(Frame{Type: TypeError, Value: []byte(msg)})
}

// Reader reads frames from the serial link
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a frame reader
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadFrame reads one frame. A clean end of stream before the header
// returns io.EOF; a frame cut short returns io.ErrUnexpectedEOF.
func (r *Reader) ReadFrame() (Frame, error) {
	var header [2]byte
	if _, err := io.ReadFull(r.r, header[:]); err != nil {
		return Frame{}, err
	}
	value := make([]byte, header[1])
	if _, err := io.ReadFull(r.r, value); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return Frame{}, err
	}
	return Frame{Type: header[0], Value: value}, nil
}

// ReadCommands reads command frames up to the end of one instruction
// sequence and parses the opcodes.
func (r *Reader) ReadCommands() ([]command.Step, error) {
	var data []byte
	for {
		f, err := r.ReadFrame()
		if err != nil {
			return nil, err
		}
		switch f.Type {
		case TypeCommands:
		case TypeError:
			return nil, fmt.Errorf("%w: %s", ErrRemote, f.Value)
		default:
			return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownType, f.Type)
		}

		data = append(data, f.Value...)
		if len(f.Value) < MaxValue {
			break
		}
	}
	return command.Parse(string(data))
}

// String renders a frame for logs
func (f Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%02x %d]", f.Type, len(f.Value))
	if f.Type == TypeCommands {
		sb.WriteByte(' ')
		sb.Write(f.Value)
	} else if len(f.Value) > 0 {
		fmt.Fprintf(&sb, " %q", f.Value)
	}
	return sb.String()
}
