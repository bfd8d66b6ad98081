package net

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// ClientHeaderSize covers [size][seq][session][param][opcode] plus the
	// trailing 2-byte checksum.
	ClientHeaderSize = 12
	clientPrefixSize = 10

	// MaxServerPacket is the largest packet the client accepts without crashing.
	MaxServerPacket = 2048
)

var (
	ErrBadChecksum = errors.New("bad packet checksum")
	ErrOversize    = errors.New("packet too large")
)

// Header holds the fixed fields of a client packet.
type Header struct {
	Size      uint16 // body size, excluding header and checksum
	Sequence  uint16
	SessionID uint16
	Parameter uint16
}

// ReadFrame reads one client packet from r.
// Wire format (big-endian): [2B size][2B seq][2B session][2B param][2B opcode][body][2B checksum].
// It returns the header and raw = [2B opcode][body], the form the registry dispatches.
func ReadFrame(r io.Reader) (Header, []byte, error) {
	var prefix [clientPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return Header{}, nil, fmt.Errorf("read frame header: %w", err)
	}
	h := Header{
		Size:      binary.BigEndian.Uint16(prefix[0:2]),
		Sequence:  binary.BigEndian.Uint16(prefix[2:4]),
		SessionID: binary.BigEndian.Uint16(prefix[4:6]),
		Parameter: binary.BigEndian.Uint16(prefix[6:8]),
	}

	rest := make([]byte, int(h.Size)+2)
	if _, err := io.ReadFull(r, rest); err != nil {
		return h, nil, fmt.Errorf("read frame body (%d bytes): %w", h.Size, err)
	}

	full := make([]byte, 0, clientPrefixSize+len(rest))
	full = append(full, prefix[:]...)
	full = append(full, rest...)

	end := len(full)
	calc := Checksum(full[:end-2])
	got := binary.BigEndian.Uint16(full[end-2:])
	if calc != got {
		return h, nil, fmt.Errorf("checksum 0x%04X, calculated 0x%04X: %w", got, calc, ErrBadChecksum)
	}

	raw := full[clientPrefixSize-2 : end-2]
	return h, raw, nil
}

// EncodeClientFrame builds a client packet around raw (opcode + body).
// Used by tests and tools that play the client side.
func EncodeClientFrame(h Header, raw []byte) []byte {
	body := len(raw) - 2
	if body < 0 {
		body = 0
	}
	buf := make([]byte, clientPrefixSize-2, clientPrefixSize+body+2)
	binary.BigEndian.PutUint16(buf[0:2], uint16(body))
	binary.BigEndian.PutUint16(buf[2:4], h.Sequence)
	binary.BigEndian.PutUint16(buf[4:6], h.SessionID)
	binary.BigEndian.PutUint16(buf[6:8], h.Parameter)
	buf = append(buf, raw...)
	return binary.BigEndian.AppendUint16(buf, Checksum(buf))
}

// Checksum is the client's packet checksum over data.
func Checksum(data []byte) uint16 {
	val1 := byte(0x7E)
	val2 := byte(0x7E)
	for _, b := range data {
		val1 += b
		val2 += val1
	}
	return uint16(int(val2) - ((int(val1) + int(val2)) << 8))
}

// WriteFrame writes one already-built server packet to w.
func WriteFrame(w io.Writer, data []byte) error {
	if len(data) > MaxServerPacket {
		return fmt.Errorf("server packet 0x%02X (%d bytes): %w", data[2], len(data), ErrOversize)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
