package handler

import (
	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
)

// HandleDoor processes C_DOOR_REQUEST.
// Format: [4B door id][1B requested state]
// The door only moves after the client confirms it can see it.
func HandleDoor(sess *net.Session, f *packet.Frame, deps *Deps) error {
	doorID, err := f.ReadInt()
	if err != nil {
		return err
	}
	state, err := f.ReadByte()
	if err != nil {
		return err
	}
	want := world.DoorClosed
	if state == 1 {
		want = world.DoorOpen
	}

	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	return inRegion(deps, p, "door", func() error {
		d, ok := deps.World.Door(doorID)
		if !ok || d.Region != p.RegionID() {
			sess.Log().Debug("door not here", zap.Uint32("door", doorID))
			return nil
		}
		return checkLOS(deps, p, d.ObjectID, func(resp dialog.Response, _ any) {
			if !resp.Visible() {
				sendMessage(sess, chatSystem, "You can't see that door.")
				return
			}
			moved, err := deps.World.SetDoorState(doorID, want)
			if err != nil {
				return
			}
			pkt := doorStatePacket(moved)
			for _, other := range deps.World.Nearby(moved.Region, moved.Pos) {
				other.Send(pkt)
			}
		}, nil)
	})
}
