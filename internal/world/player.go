package world

import (
	"sync/atomic"

	"github.com/dolgo/server/internal/net"
)

// Realm is the faction a character belongs to.
type Realm byte

const (
	RealmNone     Realm = 0
	RealmAlbion   Realm = 1
	RealmMidgard  Realm = 2
	RealmHibernia Realm = 3
)

func (r Realm) String() string {
	switch r {
	case RealmAlbion:
		return "Albion"
	case RealmMidgard:
		return "Midgard"
	case RealmHibernia:
		return "Hibernia"
	default:
		return "None"
	}
}

// Position is a location in global zone coordinates.
type Position struct {
	X       uint32
	Y       uint32
	Z       uint16
	Heading uint16
}

// Player is a character currently in the world. Identity fields are fixed
// at login; Pos, Money and Inventory are mutated only on the goroutine of
// the region the player stands in.
type Player struct {
	ID      ActorID
	Session *net.Session
	CharID  int64 // DB id
	Name    string
	Account string
	Realm   Realm
	Level   byte

	Pos       Position
	Money     int64 // copper
	Inventory *Inventory
	Merchant  uint16 // object id of the merchant last traded with

	region atomic.Uint32
	alive  atomic.Bool
}

// NewPlayer builds a live player for sess. The id is assigned by State.Add.
func NewPlayer(sess *net.Session, charID int64, name, account string) *Player {
	p := &Player{
		Session:   sess,
		CharID:    charID,
		Name:      name,
		Account:   account,
		Inventory: NewInventory(),
	}
	p.alive.Store(true)
	return p
}

// RegionID returns the region the player currently belongs to. Safe from
// any goroutine.
func (p *Player) RegionID() uint16 {
	return uint16(p.region.Load())
}

// Place sets the starting location of a player not yet added to a State.
func (p *Player) Place(region uint16, pos Position) {
	p.region.Store(uint32(region))
	p.Pos = pos
}

// Alive reports whether the player is still connected and in the world.
// Deferred actions check this before touching the player.
func (p *Player) Alive() bool {
	if !p.alive.Load() {
		return false
	}
	return p.Session == nil || !p.Session.IsClosed()
}

// Send queues data on the player's session if it is still open.
func (p *Player) Send(data []byte) {
	if p.Session != nil {
		p.Session.Send(data)
	}
}

// SessionID returns the id of the owning session, 0 for detached players.
func (p *Player) SessionID() uint64 {
	if p.Session == nil {
		return 0
	}
	return p.Session.ID()
}
