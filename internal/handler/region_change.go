package handler

import (
	"github.com/dolgo/server/internal/data"
	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/scripting"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
)

// HandleRegionChange processes C_REGION_CHANGE_REQUEST (zone point jump).
// Format: [2B jump spot id]
func HandleRegionChange(sess *net.Session, f *packet.Frame, deps *Deps) error {
	spot, err := f.ReadShort()
	if err != nil {
		return err
	}
	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	return inRegion(deps, p, "zone point jump", func() error {
		zp := deps.Tables.ZonePoints.Get(spot)
		if zp == nil {
			sess.Log().Debug("unknown zone point", zap.Uint16("id", spot))
			sendMessage(sess, chatSystem, "This zone point leads nowhere.")
			return nil
		}
		if _, ok := deps.Regions.Get(zp.TargetRegion); !ok {
			sess.Log().Warn("zone point to unloaded region",
				zap.Uint16("id", spot), zap.Uint16("region", zp.TargetRegion))
			sendMessage(sess, chatSystem, "This zone point leads nowhere.")
			return nil
		}
		if zp.Realm != 0 && world.Realm(zp.Realm) != p.Realm {
			sendMessage(sess, chatSystem, "You cannot enter that realm.")
			return nil
		}
		if zp.Script != "" && deps.Scripting != nil {
			ok, msg := deps.Scripting.CanJump(zp.Script, scripting.JumpContext{
				Player:       p.Name,
				Realm:        int(p.Realm),
				Level:        int(p.Level),
				Region:       int(p.RegionID()),
				ZonePoint:    int(zp.ID),
				TargetRegion: int(zp.TargetRegion),
			})
			if !ok {
				if msg != "" {
					sendMessage(sess, chatSystem, msg)
				}
				return nil
			}
		}
		if zp.Confirm == "" {
			jump(deps, p, zp)
			return nil
		}
		return showCustomDialog(deps, p, zp.Confirm, func(resp dialog.Response, _ any) {
			if resp.Accepted() {
				jump(deps, p, zp)
			}
		}, nil)
	})
}

// jump moves p to zp's target. Runs on p's current region goroutine; p
// belongs to the target region once World.Move returns, so nothing of p is
// read after that.
func jump(deps *Deps, p *world.Player, zp *data.ZonePoint) {
	pos := world.Position{X: zp.TargetX, Y: zp.TargetY, Z: zp.TargetZ, Heading: zp.Heading}
	save := snapshot(p, false)
	save.Region = int32(zp.TargetRegion)
	save.X, save.Y = int64(pos.X), int64(pos.Y)
	save.Z, save.Heading = int32(pos.Z), int32(pos.Heading)

	deps.Log.Info("zone point jump",
		zap.String("name", p.Name),
		zap.Uint16("from", p.RegionID()),
		zap.Uint16("to", zp.TargetRegion),
		zap.Uint16("zone_point", zp.ID),
	)
	sendRegionChanged(p, zp.TargetRegion, pos)
	deps.Journal.SaveCharacter(save)
	deps.World.Move(p, zp.TargetRegion, pos)
}
