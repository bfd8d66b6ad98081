package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"
)

// ServerHeaderSize is the size of the server packet header: [2B size][1B code].
const ServerHeaderSize = 3

// Writer builds a DAoC packet. Multi-byte writes are big-endian unless the
// method says otherwise.
type Writer struct {
	buf    []byte
	header bool
}

// NewWriter returns a writer with no header, used to build client frames
// (opcode + body) and raw payloads.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// NewServerWriter starts a server packet. The size field is patched by Bytes.
func NewServerWriter(code ServerCode) *Writer {
	w := &Writer{buf: make([]byte, 0, 64), header: true}
	w.WriteShort(0)
	w.WriteByte(byte(code))
	return w
}

// WriteByte writes 1 byte.
func (w *Writer) WriteByte(v byte) error {
	w.buf = append(w.buf, v)
	return nil
}

// WriteShort writes 2 bytes big-endian.
func (w *Writer) WriteShort(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteShortLowEndian writes 2 bytes little-endian.
func (w *Writer) WriteShortLowEndian(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// WriteInt writes 4 bytes big-endian.
func (w *Writer) WriteInt(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// Fill writes n copies of b.
func (w *Writer) Fill(b byte, n int) {
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, b)
	}
}

// WriteString writes s as a fixed-width, NUL padded Windows-1252 field.
// Longer strings are cut to width.
func (w *Writer) WriteString(s string, width int) {
	raw := encodeString(s)
	if len(raw) > width {
		raw = raw[:width]
	}
	w.buf = append(w.buf, raw...)
	w.Fill(0, width-len(raw))
}

// WriteCString writes s followed by a NUL terminator.
func (w *Writer) WriteCString(s string) {
	w.buf = append(w.buf, encodeString(s)...)
	w.buf = append(w.buf, 0)
}

// WritePascalString writes s prefixed by a 1-byte length.
func (w *Writer) WritePascalString(s string) {
	raw := encodeString(s)
	if len(raw) > 0xFF {
		raw = raw[:0xFF]
	}
	w.buf = append(w.buf, byte(len(raw)))
	w.buf = append(w.buf, raw...)
}

// WriteBytes writes raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// Bytes returns the packet. For server packets the size field is set to the
// number of bytes after the 3-byte header.
func (w *Writer) Bytes() []byte {
	if w.header {
		binary.BigEndian.PutUint16(w.buf[0:2], uint16(len(w.buf)-ServerHeaderSize))
	}
	return w.buf
}

// Len returns the current length including any header.
func (w *Writer) Len() int {
	return len(w.buf)
}

func encodeString(s string) []byte {
	if s == "" {
		return nil
	}
	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// Fallback: raw bytes (fine for pure ASCII)
		return []byte(s)
	}
	return encoded
}
