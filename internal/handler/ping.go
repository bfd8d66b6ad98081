package handler

import (
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
)

// HandlePing processes C_PING_REQUEST.
// Format: [4B unused][4B timestamp]
func HandlePing(sess *net.Session, f *packet.Frame, _ *Deps) error {
	if err := f.Skip(4); err != nil {
		return err
	}
	ts, err := f.ReadInt()
	if err != nil {
		return err
	}
	sendPingReply(sess, ts)
	return nil
}
