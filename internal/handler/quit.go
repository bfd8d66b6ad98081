package handler

import (
	"time"

	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
)

// quitDelay gives the writer goroutine time to flush S_QUIT.
const quitDelay = 200 * time.Millisecond

// HandleQuit processes C_QUIT_REQUEST.
// Format: [1B flag]
func HandleQuit(sess *net.Session, f *packet.Frame, deps *Deps) error {
	var level byte
	if p := deps.World.BySession(sess.ID()); p != nil {
		level = p.Level
	}
	sess.Log().Info("quit requested")
	sendQuit(sess, level)
	time.AfterFunc(quitDelay, sess.Close)
	return nil
}
