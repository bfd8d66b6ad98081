package packet

import (
	"errors"
	"testing"
)

func TestFrameReadsBigEndian(t *testing.T) {
	f := NewFrame([]byte{0x7F, 0x12, 0x34, 0xDE, 0xAD, 0xBE, 0xEF})
	b, err := f.ReadByte()
	if err != nil || b != 0x7F {
		t.Fatalf("ReadByte = %#x, %v", b, err)
	}
	s, err := f.ReadShort()
	if err != nil || s != 0x1234 {
		t.Fatalf("ReadShort = %#x, %v", s, err)
	}
	i, err := f.ReadInt()
	if err != nil || i != 0xDEADBEEF {
		t.Fatalf("ReadInt = %#x, %v", i, err)
	}
	if f.Remaining() != 0 || f.Pos() != f.Len() {
		t.Fatalf("cursor not at end: pos=%d len=%d", f.Pos(), f.Len())
	}
}

func TestFrameLowEndianReads(t *testing.T) {
	f := NewFrame([]byte{0x34, 0x12, 0x78, 0x56, 0x34, 0x12})
	s, err := f.ReadShortLowEndian()
	if err != nil || s != 0x1234 {
		t.Fatalf("ReadShortLowEndian = %#x, %v", s, err)
	}
	i, err := f.ReadIntLowEndian()
	if err != nil || i != 0x12345678 {
		t.Fatalf("ReadIntLowEndian = %#x, %v", i, err)
	}
}

func TestFrameTruncatedReadsDoNotAdvance(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		read func(f *Frame) error
	}{
		{"byte", nil, func(f *Frame) error { _, err := f.ReadByte(); return err }},
		{"short", []byte{1}, func(f *Frame) error { _, err := f.ReadShort(); return err }},
		{"int", []byte{1, 2, 3}, func(f *Frame) error { _, err := f.ReadInt(); return err }},
		{"skip", []byte{1, 2}, func(f *Frame) error { return f.Skip(3) }},
		{"negative skip", []byte{1, 2}, func(f *Frame) error { return f.Skip(-1) }},
		{"string", []byte{'a', 'b'}, func(f *Frame) error { _, err := f.ReadString(4); return err }},
		{"pascal", []byte{5, 'a'}, func(f *Frame) error { _, err := f.ReadPascalString(); return err }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFrame(tc.data)
			err := tc.read(f)
			if !errors.Is(err, ErrFrameTruncated) {
				t.Fatalf("expected ErrFrameTruncated, got %v", err)
			}
			if f.Pos() > f.Len() {
				t.Fatalf("cursor past end: pos=%d len=%d", f.Pos(), f.Len())
			}
		})
	}
}

func TestFrameStrings(t *testing.T) {
	w := NewWriter()
	w.WriteString("Kay", 8)
	w.WritePascalString("café")
	f := NewFrame(w.Bytes())

	name, err := f.ReadString(8)
	if err != nil || name != "Kay" {
		t.Fatalf("ReadString = %q, %v", name, err)
	}
	if f.Pos() != 8 {
		t.Fatalf("fixed string must consume its width, pos=%d", f.Pos())
	}
	s, err := f.ReadPascalString()
	if err != nil || s != "café" {
		t.Fatalf("ReadPascalString = %q, %v", s, err)
	}
	if f.Remaining() != 0 {
		t.Fatalf("remaining = %d", f.Remaining())
	}
}

func TestServerWriterPatchesSize(t *testing.T) {
	w := NewServerWriter(S_PING_REPLY)
	w.WriteInt(7)
	w.Fill(0, 2)
	b := w.Bytes()
	if len(b) != ServerHeaderSize+6 {
		t.Fatalf("len = %d", len(b))
	}
	if b[0] != 0 || b[1] != 6 || b[2] != byte(S_PING_REPLY) {
		t.Fatalf("header = % x", b[:3])
	}
}

func TestVersionSaltRoundTrip(t *testing.T) {
	wire := Version168.Encode(C_DIALOG_RESPONSE)
	if wire != 0x82^168 {
		t.Fatalf("wire = %#x", wire)
	}
	if got := Version186.Decode(wire); got != C_DIALOG_RESPONSE {
		t.Fatalf("decode = %s", got)
	}
}
