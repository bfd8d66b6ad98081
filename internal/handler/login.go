package handler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/persist"
	"github.com/dolgo/server/internal/region"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
)

const loginTimeout = 5 * time.Second

// New characters start in Camelot.
const (
	startRegion  uint16 = 1
	startX       uint32 = 560467
	startY       uint32 = 511652
	startZ       uint16 = 2344
	startHeading uint16 = 3398
)

// HandleLogin processes C_LOGIN_REQUEST.
// Format: [2B unused][1B major][1B minor][1B build][20B password][20B account]
func HandleLogin(sess *net.Session, f *packet.Frame, deps *Deps) error {
	if err := f.Skip(2); err != nil {
		return err
	}
	major, err := f.ReadByte()
	if err != nil {
		return err
	}
	minor, err := f.ReadByte()
	if err != nil {
		return err
	}
	build, err := f.ReadByte()
	if err != nil {
		return err
	}
	password, err := f.ReadString(20)
	if err != nil {
		return err
	}
	account, err := f.ReadString(20)
	if err != nil {
		return err
	}
	account = strings.ToLower(strings.TrimSpace(account))

	version := packet.Version(uint16(major)*100 + uint16(minor)*10 + uint16(build))
	sess.SetVersion(version)
	if version < packet.Version(deps.Config.Protocol.Version) {
		sess.Log().Info("client version too low", zap.Uint16("version", uint16(version)))
		sendLoginDenied(sess, loginVersionTooLow)
		return nil
	}
	if account == "" {
		sendLoginDenied(sess, loginAccountNotFound)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()
	row, err := deps.Accounts.Login(ctx, account, password, sess.IP)
	if err != nil {
		reason := loginServiceUnavailable
		switch {
		case errors.Is(err, persist.ErrNoAccount):
			reason = loginAccountNotFound
		case errors.Is(err, persist.ErrBadPassword):
			reason = loginWrongPassword
		case errors.Is(err, persist.ErrBanned):
			reason = loginAccountClosed
		default:
			sess.Log().Error("login failed", zap.String("account", account), zap.Error(err))
		}
		sendLoginDenied(sess, reason)
		return nil
	}

	if _, dup := deps.online.LoadOrStore(row.Name, sess.ID()); dup {
		sess.Log().Info("account already logged in", zap.String("account", row.Name))
		sendLoginDenied(sess, loginAlreadyLoggedIn)
		return nil
	}
	deps.logins.Add(1)

	sess.AccountName = row.Name
	sess.OnClose(func(s *net.Session) { disconnect(s, row.Name, deps) })
	if sess.IsClosed() {
		return nil
	}
	sess.SetStatus(packet.StatusCharScreen)

	sendLoginGranted(sess, row.Name, deps.Config.Server.Name, byte(deps.Config.Server.ID))
	sess.Log().Info("login", zap.String("account", row.Name), zap.Uint16("version", uint16(version)))
	return nil
}

// HandleWorldInit processes C_WORLD_INIT_REQUEST. It loads (or creates) the
// account's character, puts it into the world and sends the initial state.
func HandleWorldInit(sess *net.Session, _ *packet.Frame, deps *Deps) error {
	ctx, cancel := context.WithTimeout(context.Background(), loginTimeout)
	defer cancel()

	c, err := deps.Chars.LoadForAccount(ctx, sess.AccountName)
	if err != nil {
		return fmt.Errorf("load character: %w", err)
	}
	if c == nil {
		c = newCharacter(sess.AccountName)
		if err := deps.Chars.Create(ctx, c); err != nil {
			return fmt.Errorf("create character: %w", err)
		}
		sess.Log().Info("character created", zap.String("name", c.Name), zap.Int64("id", c.ID))
	}
	items, err := deps.Chars.LoadItems(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	p := world.NewPlayer(sess, c.ID, c.Name, sess.AccountName)
	p.Realm = world.Realm(c.Realm)
	p.Level = byte(c.Level)
	p.Money = c.Money
	regionID, pos := uint16(c.Region), world.Position{
		X: uint32(c.X), Y: uint32(c.Y), Z: uint16(c.Z), Heading: uint16(c.Heading),
	}
	if _, ok := deps.Regions.Get(regionID); !ok {
		sess.Log().Warn("character in unknown region, moving to start",
			zap.String("name", c.Name), zap.Uint16("region", regionID))
		regionID, pos = startRegion, world.Position{X: startX, Y: startY, Z: startZ, Heading: startHeading}
	}
	p.Place(regionID, pos)
	for _, it := range items {
		name := it.TemplateID
		if t := deps.Tables.Items.Get(it.TemplateID); t != nil {
			name = t.Name
		}
		p.Inventory.Items[uint16(it.Slot)] = &world.Item{TemplateID: it.TemplateID, Name: name, Count: uint16(it.Count)}
	}

	if err := deps.World.Add(p); err != nil {
		return fmt.Errorf("enter world %s: %w", c.Name, err)
	}
	// The disconnect hook may already have run while the character loaded.
	if sess.IsClosed() {
		deps.World.Remove(p)
		sess.Log().Info("session closed during world entry", zap.String("name", c.Name))
		return nil
	}

	return inRegion(deps, p, "enter world", func() error {
		sess.SetStatus(packet.StatusPlayerInGame)
		sendRegionChanged(p, p.RegionID(), p.Pos)
		sendMoneyUpdate(p)
		slots := make([]uint16, 0, len(p.Inventory.Items))
		for slot := range p.Inventory.Items {
			slots = append(slots, slot)
		}
		sort.Slice(slots, func(i, j int) bool { return slots[i] < slots[j] })
		if len(slots) > 0 {
			sendInventoryUpdate(p, slots...)
		}
		sess.Log().Info("entered world", zap.String("name", p.Name), zap.Uint16("region", p.RegionID()))
		return nil
	})
}

func newCharacter(account string) *persist.CharacterRow {
	name := account
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return &persist.CharacterRow{
		Account: account,
		Name:    name,
		Realm:   int16(world.RealmAlbion),
		Level:   1,
		Region:  int32(startRegion),
		X:       int64(startX),
		Y:       int64(startY),
		Z:       int32(startZ),
		Heading: int32(startHeading),
	}
}

// disconnect runs once when a logged-in session closes. Pending dialogs are
// dropped unanswered and the final save goes through the player's region so
// it sees every action queued before it. An action already running there may
// still open a dialog, so the final save clears them again.
func disconnect(sess *net.Session, account string, deps *Deps) {
	p := deps.World.BySession(sess.ID())
	if p != nil {
		deps.World.Remove(p)
	}
	deps.Dialogs.ClearOwner(sess.ID())
	deps.online.CompareAndDelete(account, sess.ID())
	deps.logouts.Add(1)
	if p == nil {
		return
	}

	save := func() error {
		deps.Dialogs.ClearOwner(sess.ID())
		deps.Journal.SaveCharacter(snapshot(p, true))
		return nil
	}
	r, ok := deps.Regions.Get(p.RegionID())
	if !ok {
		save()
		return
	}
	if err := r.Post("final save", nil, save); err != nil {
		if !errors.Is(err, region.ErrRegionStopped) {
			sess.Log().Error("queue final save", zap.Error(err))
		}
		save()
	}
	sess.Log().Info("logout", zap.String("name", p.Name))
}
