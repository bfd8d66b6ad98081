package handler

import (
	"fmt"

	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/persist"
)

// HandleDestroyItem processes C_DESTROY_ITEM_REQUEST.
// Format: [4B unused][2B slot]
func HandleDestroyItem(sess *net.Session, f *packet.Frame, deps *Deps) error {
	if err := f.Skip(4); err != nil {
		return err
	}
	slot, err := f.ReadShort()
	if err != nil {
		return err
	}
	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	return inRegion(deps, p, "destroy item", func() error {
		it, err := p.Inventory.Remove(slot)
		if err != nil {
			return nil
		}
		sendInventoryUpdate(p, slot)
		sendMessage(sess, chatSystem, fmt.Sprintf("You destroy the %s.", it.Name))
		deps.Journal.Record(persist.WALEntry{
			TxType:     persist.TxDestroy,
			CharID:     p.CharID,
			TemplateID: it.TemplateID,
			Count:      int32(it.Count),
		})
		deps.Journal.SaveCharacter(snapshot(p, true))
		return nil
	})
}
