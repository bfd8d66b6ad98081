package net

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dolgo/server/internal/net/packet"
)

func clientRaw(op packet.Opcode, body ...byte) []byte {
	w := packet.NewWriter()
	w.WriteShort(packet.Version168.Encode(op))
	w.WriteBytes(body)
	return w.Bytes()
}

func TestReadFrameRoundTrip(t *testing.T) {
	raw := clientRaw(packet.C_DOOR_REQUEST, 0, 0, 0, 9, 1)
	wire := EncodeClientFrame(Header{Sequence: 3, SessionID: 42, Parameter: 7}, raw)
	if len(wire) != ClientHeaderSize+len(raw)-2 {
		t.Fatalf("wire len = %d", len(wire))
	}

	h, got, err := ReadFrame(bytes.NewReader(wire))
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if h.Size != 5 || h.Sequence != 3 || h.SessionID != 42 || h.Parameter != 7 {
		t.Fatalf("header = %+v", h)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("raw = % x, want % x", got, raw)
	}
}

func TestReadFrameRejectsBadChecksum(t *testing.T) {
	wire := EncodeClientFrame(Header{}, clientRaw(packet.C_PING_REQUEST, 1, 2, 3, 4))
	wire[len(wire)-3] ^= 0xFF

	_, _, err := ReadFrame(bytes.NewReader(wire))
	if !errors.Is(err, ErrBadChecksum) {
		t.Fatalf("expected ErrBadChecksum, got %v", err)
	}
}

func TestReadFrameShortInput(t *testing.T) {
	wire := EncodeClientFrame(Header{}, clientRaw(packet.C_PING_REQUEST, 1, 2, 3, 4))
	if _, _, err := ReadFrame(bytes.NewReader(wire[:6])); err == nil {
		t.Fatalf("expected header error")
	}
	if _, _, err := ReadFrame(bytes.NewReader(wire[:len(wire)-1])); err == nil {
		t.Fatalf("expected body error")
	}
}

func TestChecksumKnownValues(t *testing.T) {
	// Empty input: val1 = val2 = 0x7E, 0x7E - (0xFC << 8) truncated to 16 bits.
	want := uint16(0x047E)
	if got := Checksum(nil); got != want {
		t.Fatalf("Checksum(nil) = %#04x, want %#04x", got, want)
	}
	if Checksum([]byte{1, 2, 3}) == Checksum([]byte{3, 2, 1}) {
		t.Fatalf("checksum must depend on byte order")
	}
}

func TestWriteFrameRejectsOversize(t *testing.T) {
	w := packet.NewServerWriter(packet.S_MESSAGE)
	w.Fill(0, MaxServerPacket)
	var buf bytes.Buffer
	if err := WriteFrame(&buf, w.Bytes()); !errors.Is(err, ErrOversize) {
		t.Fatalf("expected ErrOversize, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("oversize packet was written")
	}
}
