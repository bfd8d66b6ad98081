package handler

import (
	"errors"
	"fmt"

	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/persist"
	"github.com/dolgo/server/internal/world"
)

var errNoPlayer = errors.New("session has no player")

// playerFor returns the in-world player of sess.
func playerFor(sess *net.Session, deps *Deps) (*world.Player, error) {
	p := deps.World.BySession(sess.ID())
	if p == nil {
		return nil, errNoPlayer
	}
	return p, nil
}

// inRegion defers fn onto the goroutine of the region p stands in. fn is
// skipped if p has left the world by then. If p changed region in the
// meantime the action is handed on to the new region unrun.
func inRegion(deps *Deps, p *world.Player, name string, fn func() error) error {
	id := p.RegionID()
	r, ok := deps.Regions.Get(id)
	if !ok {
		return fmt.Errorf("%s: player %s in unknown region %d", name, p.Name, id)
	}
	err := r.Post(name, p, func() error {
		if p.RegionID() != id {
			return inRegion(deps, p, name, fn)
		}
		return fn()
	})
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// snapshot captures what the journal writes for p. Call on p's region goroutine.
func snapshot(p *world.Player, withItems bool) persist.CharacterSave {
	s := persist.CharacterSave{
		CharID:  p.CharID,
		Region:  int32(p.RegionID()),
		X:       int64(p.Pos.X),
		Y:       int64(p.Pos.Y),
		Z:       int32(p.Pos.Z),
		Heading: int32(p.Pos.Heading),
		Money:   p.Money,
	}
	if withItems {
		s.Items = make([]persist.ItemRow, 0, p.Inventory.Count())
		for slot, it := range p.Inventory.Items {
			s.Items = append(s.Items, persist.ItemRow{
				Slot:       int32(slot),
				TemplateID: it.TemplateID,
				Count:      int32(it.Count),
			})
		}
	}
	return s
}

// SavePlayer queues an autosave of p through its region.
func SavePlayer(deps *Deps, p *world.Player) error {
	return inRegion(deps, p, "autosave", func() error {
		deps.Journal.SaveCharacter(snapshot(p, true))
		return nil
	})
}
