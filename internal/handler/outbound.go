package handler

import (
	"fmt"
	"strings"

	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/world"
)

// Chat types used in S_MESSAGE.
const (
	chatSystem   byte = 0x00
	chatMerchant byte = 0x1B
)

// Login denial reasons.
const (
	loginWrongPassword      byte = 0x01
	loginVersionTooLow      byte = 0x05
	loginAccountNotFound    byte = 0x07
	loginAccountClosed      byte = 0x0A
	loginAlreadyLoggedIn    byte = 0x0B
	loginServiceUnavailable byte = 0xAA
)

func versionBytes(v packet.Version) (major, minor byte) {
	return byte(v / 100), byte((v % 100) / 10)
}

// sendPingReply echoes the client timestamp.
func sendPingReply(sess *net.Session, timestamp uint32) {
	w := packet.NewServerWriter(packet.S_PING_REPLY)
	w.WriteInt(timestamp)
	w.Fill(0, 12)
	sess.Send(w.Bytes())
}

func sendLoginGranted(sess *net.Session, account, serverName string, serverID byte) {
	major, minor := versionBytes(sess.Version())
	w := packet.NewServerWriter(packet.S_LOGIN_GRANTED)
	w.WriteByte(0x01)
	w.WriteByte(major)
	w.WriteByte(minor)
	w.WriteByte(0x00)
	w.WritePascalString(account)
	w.WritePascalString(serverName)
	w.WriteByte(serverID)
	w.WriteByte(0x00) // color handling
	w.WriteByte(0x00)
	sess.Send(w.Bytes())
}

func sendLoginDenied(sess *net.Session, reason byte) {
	major, minor := versionBytes(sess.Version())
	w := packet.NewServerWriter(packet.S_LOGIN_DENIED)
	w.WriteByte(reason)
	w.WriteByte(0x01)
	w.WriteByte(major)
	w.WriteByte(minor)
	w.WriteByte(0x00)
	sess.Send(w.Bytes())
}

// sendMessage writes a line into the client's chat window.
func sendMessage(sess *net.Session, chatType byte, msg string) {
	w := packet.NewServerWriter(packet.S_MESSAGE)
	w.WriteShort(uint16(sess.ID()))
	w.WriteShort(0)
	w.WriteByte(chatType)
	w.Fill(0, 3)
	w.WriteCString("@@" + msg)
	sess.Send(w.Bytes())
}

// sendDialogBox opens a dialog. data1 is echoed back in the response and
// carries the correlation value.
func sendDialogBox(sess *net.Session, kind dialog.Kind, data1, data2, data3, data4 uint16, box dialog.Box, msg string) {
	w := packet.NewServerWriter(packet.S_DIALOG)
	w.WriteByte(0x00)
	w.WriteByte(byte(kind))
	w.WriteShort(data1)
	w.WriteShort(data2)
	w.WriteShort(data3)
	w.WriteShort(data4)
	w.WriteByte(byte(box))
	w.WriteByte(0x01) // autowrap
	w.WriteCString(msg)
	sess.Send(w.Bytes())
}

// customDialogKey is the key of p's custom dialog. The client echoes the
// session id in data1, so a player has at most one custom dialog open.
func customDialogKey(p *world.Player) dialog.Key {
	return dialog.Key{Kind: dialog.CustomDialog, Correlation: uint32(uint16(p.SessionID()))}
}

// showCustomDialog asks p a yes/no question. A dialog still open is
// answered with decline before the new one replaces it. cb runs on p's
// region goroutine.
func showCustomDialog(deps *Deps, p *world.Player, msg string, cb dialog.Callback, state any) error {
	key := customDialogKey(p)
	if err := deps.Dialogs.Present(p.SessionID(), key, cb, state, dialog.Supersede); err != nil {
		return err
	}
	sendDialogBox(p.Session, dialog.CustomDialog, uint16(key.Correlation), 0x01, 0, 0, dialog.BoxYesNo, msg)
	return nil
}

// checkLOS asks p's client whether it can see target. A pending check for
// the same pair is answered with decline first.
func checkLOS(deps *Deps, p *world.Player, target uint16, cb dialog.Callback, state any) error {
	checker := p.ID.ObjectID()
	key := dialog.LOSKey(checker, target)
	if err := deps.Dialogs.Present(p.SessionID(), key, cb, state, dialog.Supersede); err != nil {
		return err
	}
	w := packet.NewServerWriter(packet.S_CHECK_LOS)
	w.WriteShort(checker)
	w.WriteShort(target)
	w.WriteShort(0)
	w.WriteShort(0)
	p.Send(w.Bytes())
	return nil
}

// sendRegionChanged tells the client it now stands in region at pos.
func sendRegionChanged(p *world.Player, region uint16, pos world.Position) {
	w := packet.NewServerWriter(packet.S_REGION_CHANGED)
	w.WriteShort(region)
	w.WriteShort(0)
	w.WriteShort(p.ID.ObjectID())
	w.WriteShort(pos.Z)
	w.WriteInt(pos.X)
	w.WriteInt(pos.Y)
	w.WriteShort(pos.Heading)
	p.Send(w.Bytes())
}

// sendDetailWindow shows a delve window. Lines are numbered from 1.
func sendDetailWindow(sess *net.Session, caption string, lines []string) {
	w := packet.NewServerWriter(packet.S_DETAIL_WINDOW)
	w.WritePascalString(caption)
	for i, l := range lines {
		if i >= 0xFE {
			break
		}
		w.WriteByte(byte(i + 1))
		w.WritePascalString(l)
	}
	w.WriteByte(0)
	sess.Send(w.Bytes())
}

// splitMoney breaks copper into the client's denominations.
func splitMoney(m int64) (copper, silver byte, gold, mithril, platinum uint16) {
	copper = byte(m % 100)
	silver = byte(m / 100 % 100)
	gold = uint16(m / 10_000 % 1000)
	platinum = uint16(m / 10_000_000 % 1000)
	mithril = uint16(m / 10_000_000_000 % 1000)
	return
}

func sendMoneyUpdate(p *world.Player) {
	copper, silver, gold, mithril, platinum := splitMoney(p.Money)
	w := packet.NewServerWriter(packet.S_MONEY_UPDATE)
	w.WriteByte(copper)
	w.WriteByte(silver)
	w.WriteShort(gold)
	w.WriteShort(mithril)
	w.WriteShort(platinum)
	p.Send(w.Bytes())
}

// sendInventoryUpdate refreshes the given slots. Empty slots are cleared.
func sendInventoryUpdate(p *world.Player, slots ...uint16) {
	w := packet.NewServerWriter(packet.S_INVENTORY_UPDATE)
	w.WriteByte(byte(len(slots)))
	w.WriteByte(0)
	w.WriteByte(0)
	w.WriteByte(0) // pre action
	for _, slot := range slots {
		w.WriteByte(byte(slot))
		it := p.Inventory.Get(slot)
		if it == nil {
			w.WriteByte(0)
			w.WriteShort(0)
			w.WritePascalString("")
			continue
		}
		w.WriteByte(0) // level
		w.WriteShort(it.Count)
		w.WritePascalString(it.Name)
	}
	p.Send(w.Bytes())
}

func doorStatePacket(d *world.Door) []byte {
	w := packet.NewServerWriter(packet.S_DOOR_STATE)
	w.WriteInt(d.ID)
	w.WriteByte(byte(d.State))
	w.WriteByte(0) // flag
	w.Fill(0, 2)
	return w.Bytes()
}

func sendQuit(sess *net.Session, level byte) {
	w := packet.NewServerWriter(packet.S_QUIT)
	w.WriteByte(0x01)
	w.WriteByte(level)
	sess.Send(w.Bytes())
}

// formatMoney renders copper the way merchants quote prices.
func formatMoney(m int64) string {
	copper, silver, gold, mithril, platinum := splitMoney(m)
	var parts []string
	add := func(n int64, unit string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, unit))
		}
	}
	add(int64(mithril), "mithril")
	add(int64(platinum), "platinum")
	add(int64(gold), "gold")
	add(int64(silver), "silver")
	add(int64(copper), "copper")
	if len(parts) == 0 {
		return "0 copper"
	}
	return strings.Join(parts, ", ")
}
