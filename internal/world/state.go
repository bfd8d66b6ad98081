package world

import (
	"errors"
	"strings"
	"sync"
)

var (
	ErrNameInUse    = errors.New("character already in world")
	ErrUnknownDoor  = errors.New("unknown door")
	ErrSessionInUse = errors.New("session already has a player")
)

// VisibilityRange is the distance within which players see each other.
const VisibilityRange = 3600

// DoorState is the open/closed state of a door.
type DoorState byte

const (
	DoorClosed DoorState = 0
	DoorOpen   DoorState = 1
)

// Door is a door instance placed in a region.
type Door struct {
	ID       uint32
	ObjectID uint16
	Region   uint16
	Pos      Position
	State    DoorState
}

// State is the index of everything currently in the world. The index is
// shared between network goroutines (lookups) and region goroutines
// (moves), so it is guarded by a RWMutex. Player fields themselves belong
// to the player's region goroutine.
type State struct {
	mu        sync.RWMutex
	pool      *ActorPool
	players   map[ActorID]*Player
	bySession map[uint64]*Player
	byName    map[string]*Player
	grid      *grid

	doors map[uint32]*Door
}

func NewState() *State {
	return &State{
		pool:      NewActorPool(),
		players:   make(map[ActorID]*Player),
		bySession: make(map[uint64]*Player),
		byName:    make(map[string]*Player),
		grid:      newGrid(),
		doors:     make(map[uint32]*Door),
	}
}

// Add assigns p an actor id and registers it. Names are unique across the
// world, compared case-insensitively.
func (s *State) Add(p *Player) error {
	key := strings.ToLower(p.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byName[key]; ok {
		return ErrNameInUse
	}
	sid := p.SessionID()
	if sid != 0 {
		if _, ok := s.bySession[sid]; ok {
			return ErrSessionInUse
		}
	}
	p.ID = s.pool.Acquire()
	s.players[p.ID] = p
	s.byName[key] = p
	if sid != 0 {
		s.bySession[sid] = p
	}
	s.grid.add(p.ID, p.RegionID(), p.Pos)
	return nil
}

// Remove marks p dead and drops it from every index. Actions still queued
// for p see Alive() == false and become no-ops.
func (s *State) Remove(p *Player) {
	p.alive.Store(false)
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.players[p.ID]; !ok || cur != p {
		return
	}
	delete(s.players, p.ID)
	delete(s.byName, strings.ToLower(p.Name))
	if sid := p.SessionID(); sid != 0 {
		delete(s.bySession, sid)
	}
	s.grid.remove(p.ID, p.RegionID(), p.Pos)
	s.pool.Release(p.ID)
}

// Get returns the live player holding id.
func (s *State) Get(id ActorID) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.players[id]
}

// ByName finds a player by character name.
func (s *State) ByName(name string) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byName[strings.ToLower(name)]
}

// BySession finds the player attached to a session.
func (s *State) BySession(sessionID uint64) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bySession[sessionID]
}

// ByObjectID finds a player by the 16-bit id the client knows it by.
func (s *State) ByObjectID(oid uint16) *Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, p := range s.players {
		if id.ObjectID() == oid {
			return p
		}
	}
	return nil
}

// Alive reports whether id still refers to a player in the world.
func (s *State) Alive(id ActorID) bool {
	return s.pool.Alive(id) && s.Get(id) != nil
}

// Move relocates p. Call only from the region goroutine that owns p; once
// it returns, p belongs to the new region.
func (s *State) Move(p *Player, region uint16, pos Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		s.grid.move(p.ID, p.RegionID(), p.Pos, region, pos)
	}
	p.region.Store(uint32(region))
	p.Pos = pos
}

// Nearby returns the players within VisibilityRange of pos in region.
func (s *State) Nearby(region uint16, pos Position) []*Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Player
	for _, id := range s.grid.nearby(region, pos) {
		p := s.players[id]
		if p == nil || p.RegionID() != region {
			continue
		}
		if withinRange(p.Pos, pos, VisibilityRange) {
			out = append(out, p)
		}
	}
	return out
}

func withinRange(a, b Position, r uint32) bool {
	dx := int64(a.X) - int64(b.X)
	dy := int64(a.Y) - int64(b.Y)
	return dx*dx+dy*dy <= int64(r)*int64(r)
}

// Count returns the number of players in the world.
func (s *State) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// All calls fn for a snapshot of every player.
func (s *State) All(fn func(*Player)) {
	s.mu.RLock()
	list := make([]*Player, 0, len(s.players))
	for _, p := range s.players {
		list = append(list, p)
	}
	s.mu.RUnlock()
	for _, p := range list {
		fn(p)
	}
}

// AddDoor places a door. Doors are loaded at startup.
func (s *State) AddDoor(d *Door) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doors[d.ID] = d
}

// Door returns the door with id.
func (s *State) Door(id uint32) (*Door, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doors[id]
	return d, ok
}

// SetDoorState changes a door's state. Call from the door's region goroutine.
func (s *State) SetDoorState(id uint32, st DoorState) (*Door, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doors[id]
	if !ok {
		return nil, ErrUnknownDoor
	}
	d.State = st
	return d, nil
}

// DoorCount returns the number of doors.
func (s *State) DoorCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.doors)
}
