package handler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dolgo/server/internal/config"
	"github.com/dolgo/server/internal/data"
	"github.com/dolgo/server/internal/dialog"
	"github.com/dolgo/server/internal/net"
	"github.com/dolgo/server/internal/net/packet"
	"github.com/dolgo/server/internal/persist"
	"github.com/dolgo/server/internal/region"
	"github.com/dolgo/server/internal/scripting"
	"github.com/dolgo/server/internal/world"
	"go.uber.org/zap"
)

// Accounts validates login credentials.
type Accounts interface {
	Login(ctx context.Context, name, password, ip string) (*persist.AccountRow, error)
}

// Journal takes persistence work off the region goroutines.
type Journal interface {
	SaveCharacter(s persist.CharacterSave)
	Record(e persist.WALEntry)
}

// Deps holds shared dependencies injected into all packet handlers.
type Deps struct {
	Config    *config.Config
	Log       *zap.Logger
	World     *world.State
	Regions   *region.Manager
	Dialogs   *dialog.Registry
	Tables    *data.Tables
	Scripting *scripting.Engine
	Accounts  Accounts
	Chars     persist.CharacterStore
	Journal   Journal

	online  sync.Map // account name -> session id
	logins  atomic.Uint64
	logouts atomic.Uint64
}

// handlerFunc is the shape of every handler in this package.
type handlerFunc func(sess *net.Session, f *packet.Frame, deps *Deps) error

var (
	anyStatus = []packet.Status{
		packet.StatusConnecting, packet.StatusCharScreen,
		packet.StatusWorldResetting, packet.StatusPlayerInGame,
	}
	loggedIn = []packet.Status{
		packet.StatusCharScreen, packet.StatusWorldResetting, packet.StatusPlayerInGame,
	}
	inGame = []packet.Status{packet.StatusPlayerInGame}
)

// RegisterAll registers all packet handlers into the registry and freezes it.
func RegisterAll(reg *packet.Registry, deps *Deps) error {
	table := []struct {
		op       packet.Opcode
		desc     string
		statuses []packet.Status
		fn       handlerFunc
	}{
		// Connection
		{packet.C_PING_REQUEST, "ping", anyStatus, HandlePing},
		{packet.C_LOGIN_REQUEST, "login", []packet.Status{packet.StatusConnecting}, HandleLogin},
		{packet.C_WORLD_INIT_REQUEST, "enter world", []packet.Status{packet.StatusCharScreen}, HandleWorldInit},
		{packet.C_QUIT_REQUEST, "quit", loggedIn, HandleQuit},

		// In game
		{packet.C_DETAIL_REQUEST, "delve", inGame, HandleDetailDisplay},
		{packet.C_DIALOG_RESPONSE, "dialog response", inGame, HandleDialogResponse},
		{packet.C_CHECK_LOS_RESPONSE, "line of sight response", inGame, HandleCheckLOSResponse},
		{packet.C_REGION_CHANGE_REQUEST, "zone point jump", inGame, HandleRegionChange},
		{packet.C_PLAYER_BUY_REQUEST, "merchant buy", inGame, HandleBuy},
		{packet.C_DOOR_REQUEST, "door", inGame, HandleDoor},
		{packet.C_DESTROY_ITEM_REQUEST, "destroy item", inGame, HandleDestroyItem},
	}

	for _, e := range table {
		if err := reg.Register(packet.Handler{
			Opcode:      e.op,
			Description: e.desc,
			Statuses:    e.statuses,
			Fn:          bind(e.fn, deps),
		}); err != nil {
			return err
		}
	}
	reg.Freeze()
	return nil
}

func bind(fn handlerFunc, deps *Deps) packet.HandlerFunc {
	return func(s packet.Session, f *packet.Frame) error {
		sess, ok := s.(*net.Session)
		if !ok {
			return fmt.Errorf("unexpected session type %T", s)
		}
		return fn(sess, f, deps)
	}
}

// Stats is a snapshot of login activity.
type Stats struct {
	Online  int
	Logins  uint64
	Logouts uint64
}

// Stats returns login counters.
func (d *Deps) Stats() Stats {
	n := 0
	d.online.Range(func(_, _ any) bool { n++; return true })
	return Stats{Online: n, Logins: d.logins.Load(), Logouts: d.logouts.Load()}
}

// SpawnDoors places the door table into the world.
func (d *Deps) SpawnDoors() int {
	for _, sp := range d.Tables.Doors {
		st := world.DoorClosed
		if sp.Open {
			st = world.DoorOpen
		}
		d.World.AddDoor(&world.Door{
			ID:       sp.ID,
			ObjectID: sp.ObjectID,
			Region:   sp.Region,
			Pos:      world.Position{X: sp.X, Y: sp.Y, Z: sp.Z},
			State:    st,
		})
	}
	return len(d.Tables.Doors)
}
