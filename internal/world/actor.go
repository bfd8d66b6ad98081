package world

import "sync"

// ActorID encodes a 32-bit slot index in the lower bits and a 32-bit
// generation in the upper bits. The generation is bumped on release so a
// reference held across a disconnect never matches a later occupant.
type ActorID uint64

func NewActorID(index uint32, generation uint32) ActorID {
	return ActorID(uint64(generation)<<32 | uint64(index))
}

func (id ActorID) Index() uint32      { return uint32(id) }
func (id ActorID) Generation() uint32 { return uint32(id >> 32) }
func (id ActorID) IsZero() bool       { return id == 0 }

// ObjectID is the 16-bit id the client sees for this actor. Slot zero is
// never handed out so object id 0 stays free for "none".
func (id ActorID) ObjectID() uint16 { return uint16(id.Index()) }

// ActorPool hands out generational ids with a free list. Network and region
// goroutines both consult it, so it carries its own lock.
type ActorPool struct {
	mu          sync.Mutex
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func NewActorPool() *ActorPool {
	return &ActorPool{
		generations: make([]uint32, 1, 1024),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

func (p *ActorPool) Acquire() ActorID {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return NewActorID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 0)
	return NewActorID(idx, p.generations[idx])
}

func (p *ActorPool) Alive(id ActorID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *ActorPool) Release(id ActorID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := id.Index()
	if idx == 0 || idx >= p.nextIndex {
		return
	}
	if p.generations[idx] != id.Generation() {
		return // already released
	}
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
}
