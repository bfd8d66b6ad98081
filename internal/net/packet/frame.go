package packet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/text/encoding/charmap"
)

// ErrFrameTruncated is returned when a read would go past the end of a frame.
var ErrFrameTruncated = errors.New("frame truncated")

// Frame reads DAoC client packet fields from one received message.
// Multi-byte fields are big-endian unless the method says otherwise.
// The cursor only moves forward and never past Len().
type Frame struct {
	data []byte
	off  int
}

func NewFrame(data []byte) *Frame {
	return &Frame{data: data}
}

// Len returns the declared frame length.
func (f *Frame) Len() int { return len(f.data) }

// Pos returns the current cursor offset.
func (f *Frame) Pos() int { return f.off }

// Remaining returns the number of unread bytes.
func (f *Frame) Remaining() int { return len(f.data) - f.off }

func (f *Frame) need(n int, field string) error {
	if n < 0 || f.off+n > len(f.data) {
		return fmt.Errorf("%s at offset %d (need %d, have %d): %w",
			field, f.off, n, len(f.data)-f.off, ErrFrameTruncated)
	}
	return nil
}

// ReadByte reads 1 unsigned byte.
func (f *Frame) ReadByte() (byte, error) {
	if err := f.need(1, "byte"); err != nil {
		return 0, err
	}
	v := f.data[f.off]
	f.off++
	return v, nil
}

// ReadShort reads 2 bytes as big-endian uint16.
func (f *Frame) ReadShort() (uint16, error) {
	if err := f.need(2, "short"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(f.data[f.off:])
	f.off += 2
	return v, nil
}

// ReadShortLowEndian reads 2 bytes as little-endian uint16.
func (f *Frame) ReadShortLowEndian() (uint16, error) {
	if err := f.need(2, "short"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(f.data[f.off:])
	f.off += 2
	return v, nil
}

// ReadInt reads 4 bytes as big-endian uint32.
func (f *Frame) ReadInt() (uint32, error) {
	if err := f.need(4, "int"); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(f.data[f.off:])
	f.off += 4
	return v, nil
}

// ReadIntLowEndian reads 4 bytes as little-endian uint32.
func (f *Frame) ReadIntLowEndian() (uint32, error) {
	if err := f.need(4, "int"); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(f.data[f.off:])
	f.off += 4
	return v, nil
}

// Skip advances the cursor by n bytes.
func (f *Frame) Skip(n int) error {
	if err := f.need(n, "skip"); err != nil {
		return err
	}
	f.off += n
	return nil
}

// ReadString reads a fixed-width, NUL padded Windows-1252 string and returns UTF-8.
// The whole width is consumed even when the string is shorter.
func (f *Frame) ReadString(width int) (string, error) {
	if err := f.need(width, "string"); err != nil {
		return "", err
	}
	raw := f.data[f.off : f.off+width]
	f.off += width
	for i, b := range raw {
		if b == 0 {
			raw = raw[:i]
			break
		}
	}
	return decodeString(raw), nil
}

// ReadPascalString reads a string prefixed by a 1-byte length.
func (f *Frame) ReadPascalString() (string, error) {
	n, err := f.ReadByte()
	if err != nil {
		return "", err
	}
	if err := f.need(int(n), "pascal string"); err != nil {
		return "", err
	}
	raw := f.data[f.off : f.off+int(n)]
	f.off += int(n)
	return decodeString(raw), nil
}

// decodeString converts Windows-1252 bytes to a UTF-8 string.
func decodeString(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	// Fast path: ASCII needs no conversion
	allASCII := true
	for _, b := range raw {
		if b >= 0x80 {
			allASCII = false
			break
		}
	}
	if allASCII {
		return string(raw)
	}
	decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}
