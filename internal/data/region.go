package data

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// RegionInfo describes a region of the world.
type RegionInfo struct {
	ID        uint16           `yaml:"id"`
	Name      string           `yaml:"name"`
	Expansion byte             `yaml:"expansion"`
	Frontier  bool             `yaml:"frontier"`
	Merchants []RegionMerchant `yaml:"merchants"`
}

// RegionMerchant binds a merchant standing in the region to its list.
type RegionMerchant struct {
	ObjectID uint16 `yaml:"object_id"`
	List     string `yaml:"list"`
}

// MerchantList returns the list id sold by the merchant with object id oid.
func (r *RegionInfo) MerchantList(oid uint16) (string, bool) {
	for _, m := range r.Merchants {
		if m.ObjectID == oid {
			return m.List, true
		}
	}
	return "", false
}

// RegionTable lists every region.
type RegionTable struct {
	regions map[uint16]*RegionInfo
}

// LoadRegionTable loads regions.yaml.
func LoadRegionTable(path string) (*RegionTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read regions: %w", err)
	}
	var entries []RegionInfo
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse regions: %w", err)
	}
	t := &RegionTable{regions: make(map[uint16]*RegionInfo, len(entries))}
	for i := range entries {
		e := &entries[i]
		if _, dup := t.regions[e.ID]; dup {
			return nil, fmt.Errorf("region %d defined twice", e.ID)
		}
		t.regions[e.ID] = e
	}
	return t, nil
}

// Get returns the region with id, or nil.
func (t *RegionTable) Get(id uint16) *RegionInfo {
	return t.regions[id]
}

// All returns the regions sorted by id.
func (t *RegionTable) All() []*RegionInfo {
	out := make([]*RegionInfo, 0, len(t.regions))
	for _, r := range t.regions {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Count returns the number of regions loaded.
func (t *RegionTable) Count() int {
	return len(t.regions)
}
