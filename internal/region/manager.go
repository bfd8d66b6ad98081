package region

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Manager owns every region. Regions are added at startup only.
type Manager struct {
	regions  map[uint16]*Region
	tickRate time.Duration
	log      *zap.Logger
}

func NewManager(tickRate time.Duration, log *zap.Logger) *Manager {
	return &Manager{
		regions:  make(map[uint16]*Region),
		tickRate: tickRate,
		log:      log,
	}
}

// Add creates a region. Duplicate ids are rejected.
func (m *Manager) Add(id uint16, name string) (*Region, error) {
	if _, ok := m.regions[id]; ok {
		return nil, fmt.Errorf("region %d already exists", id)
	}
	r := New(id, name, m.log)
	m.regions[id] = r
	return r, nil
}

// Get returns the region with the given id.
func (m *Manager) Get(id uint16) (*Region, bool) {
	r, ok := m.regions[id]
	return r, ok
}

// Count returns the number of regions.
func (m *Manager) Count() int {
	return len(m.regions)
}

// All returns the regions sorted by id.
func (m *Manager) All() []*Region {
	out := make([]*Region, 0, len(m.regions))
	for _, r := range m.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run starts one goroutine per region and blocks until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range m.regions {
		r := r
		g.Go(func() error {
			return r.Run(ctx, m.tickRate)
		})
	}
	return g.Wait()
}
