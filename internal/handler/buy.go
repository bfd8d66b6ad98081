package handler

import (
	"fmt"

	"github.com/dolgo/server/internal/data"
	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/persist"
	"github.com/dolgo/server/internal/scripting"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
)

// purchase is a priced buy waiting for completion.
type purchase struct {
	template *data.ItemTemplate
	count    uint16
	total    int64
}

// HandleBuy processes C_PLAYER_BUY_REQUEST.
// Format: [4B x][4B y][2B merchant oid][2B item slot][1B count][1B menu id]
func HandleBuy(sess *net.Session, f *packet.Frame, deps *Deps) error {
	if err := f.Skip(8); err != nil {
		return err
	}
	merchantOID, err := f.ReadShort()
	if err != nil {
		return err
	}
	itemSlot, err := f.ReadShort()
	if err != nil {
		return err
	}
	count, err := f.ReadByte()
	if err != nil {
		return err
	}
	if _, err := f.ReadByte(); err != nil {
		return err
	}

	p, err := playerFor(sess, deps)
	if err != nil {
		return err
	}
	return inRegion(deps, p, "merchant buy", func() error {
		buy, ok := priceBuy(deps, p, merchantOID, itemSlot, uint16(count))
		if !ok {
			return nil
		}
		p.Merchant = merchantOID
		if p.Money < buy.total {
			sendMessage(sess, chatMerchant, fmt.Sprintf("You need %s to buy this.", formatMoney(buy.total)))
			return nil
		}
		if threshold := deps.Config.Dialog.ConfirmPrice; threshold > 0 && buy.total >= threshold {
			msg := fmt.Sprintf("Do you really want to buy %d %s for %s?", buy.count, buy.template.Name, formatMoney(buy.total))
			return showCustomDialog(deps, p, msg, func(resp dialog.Response, state any) {
				if resp.Accepted() {
					completeBuy(deps, p, state.(purchase))
				}
			}, buy)
		}
		completeBuy(deps, p, buy)
		return nil
	})
}

// priceBuy resolves the merchant item behind itemSlot and prices count of it.
func priceBuy(deps *Deps, p *world.Player, merchantOID, itemSlot, count uint16) (purchase, bool) {
	info := deps.Tables.Regions.Get(p.RegionID())
	if info == nil {
		return purchase{}, false
	}
	listID, ok := info.MerchantList(merchantOID)
	if !ok {
		deps.Log.Debug("buy from unknown merchant",
			zap.String("name", p.Name), zap.Uint16("merchant", merchantOID))
		return purchase{}, false
	}
	list := deps.Tables.Merchants.Get(listID)
	if list == nil {
		deps.Log.Warn("merchant list missing", zap.String("list", listID))
		return purchase{}, false
	}
	item := list.Item(itemSlot)
	if item == nil {
		return purchase{}, false
	}
	tmpl := deps.Tables.Items.Get(item.TemplateID)
	if tmpl == nil {
		deps.Log.Warn("merchant sells unknown item",
			zap.String("list", listID), zap.String("template", item.TemplateID))
		return purchase{}, false
	}

	if count == 0 {
		count = 1
	}
	if count > tmpl.MaxCount {
		count = tmpl.MaxCount
	}
	unit := item.Price
	if unit == 0 {
		unit = tmpl.Price
	}
	if deps.Scripting != nil {
		unit = deps.Scripting.PriceModifier(scripting.PriceContext{
			Template:  tmpl.ID,
			BasePrice: unit,
			Count:     int(count),
			Realm:     int(p.Realm),
			Level:     int(p.Level),
			Region:    int(p.RegionID()),
		})
	}
	return purchase{template: tmpl, count: count, total: unit * int64(count)}, true
}

// completeBuy hands the item over. Money is checked again since a confirm
// dialog may have been open for a while.
func completeBuy(deps *Deps, p *world.Player, buy purchase) {
	if p.Money < buy.total {
		sendMessage(p.Session, chatMerchant, fmt.Sprintf("You need %s to buy this.", formatMoney(buy.total)))
		return
	}
	slot, err := p.Inventory.Add(&world.Item{
		TemplateID: buy.template.ID,
		Name:       buy.template.Name,
		Count:      buy.count,
	})
	if err != nil {
		sendMessage(p.Session, chatMerchant, "Your inventory is full.")
		return
	}
	p.Money -= buy.total

	sendInventoryUpdate(p, slot)
	sendMoneyUpdate(p)
	sendMessage(p.Session, chatMerchant, fmt.Sprintf("You just bought %s for %s.", buy.template.Name, formatMoney(buy.total)))

	deps.Journal.Record(persist.WALEntry{
		TxType:     persist.TxBuy,
		CharID:     p.CharID,
		TemplateID: buy.template.ID,
		Count:      int32(buy.count),
		Money:      -buy.total,
	})
	deps.Journal.SaveCharacter(snapshot(p, true))
}
