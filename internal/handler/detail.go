package handler

import (
	"fmt"

	"github.com/dolgo/server/internal/data"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/world"
)

// Delve object types.
const (
	detailInventoryItem uint16 = 1
	detailMerchantItem  uint16 = 4
)

// HandleDetailDisplay processes C_DETAIL_REQUEST (delve).
// Format: [2B object type]([4B extra id] 1.86+)[2B object id]
func HandleDetailDisplay(sess *net.Session, f *packet.Frame, deps *Deps) error {
	objectType, err := f.ReadShort()
	if err != nil {
		return err
	}
	if sess.Version() >= packet.Version186 {
		if _, err := f.ReadInt(); err != nil {
			return err
		}
	}
	objectID, err := f.ReadShort()
	if err != nil {
		return err
	}

	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	return inRegion(deps, p, "delve", func() error {
		caption, lines := "", []string(nil)
		switch objectType {
		case detailInventoryItem:
			caption, lines = delveItem(deps, p, objectID)
		case detailMerchantItem:
			caption, lines = delveMerchantItem(deps, p, objectID)
		}
		if lines == nil {
			caption, lines = "Information", []string{"No information available."}
		}
		sendDetailWindow(sess, caption, lines)
		return nil
	})
}

func delveItem(deps *Deps, p *world.Player, slot uint16) (string, []string) {
	it := p.Inventory.Get(slot)
	if it == nil {
		return "", nil
	}
	lines := []string{}
	t := deps.Tables.Items.Get(it.TemplateID)
	if t != nil && t.Description != "" {
		lines = append(lines, t.Description, "")
	}
	if t != nil && t.Level > 0 {
		lines = append(lines, fmt.Sprintf("Level: %d", t.Level))
	}
	if it.Count > 1 {
		lines = append(lines, fmt.Sprintf("Count: %d", it.Count))
	}
	if t != nil {
		lines = append(lines, "Value: "+formatMoney(t.Price))
	}
	return it.Name, lines
}

// delveMerchantItem describes an item in the window of the merchant p last
// traded with. slot is the packed page*30+slot index.
func delveMerchantItem(deps *Deps, p *world.Player, slot uint16) (string, []string) {
	if p.Merchant == 0 {
		return "", nil
	}
	buy, ok := priceBuy(deps, p, p.Merchant, slot, 1)
	if !ok {
		return "", nil
	}
	t := buy.template
	lines := []string{}
	if t.Description != "" {
		lines = append(lines, t.Description, "")
	}
	if t.Level > 0 {
		lines = append(lines, fmt.Sprintf("Level: %d", t.Level))
	}
	lines = append(lines,
		fmt.Sprintf("Page %d, slot %d", slot/data.MerchantPageSize+1, slot%data.MerchantPageSize+1),
		"Price: "+formatMoney(buy.total),
	)
	return t.Name, lines
}
