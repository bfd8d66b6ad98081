package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ZonePoint is a jump spot: where a region change request lands the player.
type ZonePoint struct {
	ID           uint16 `yaml:"id"`
	Realm        byte   `yaml:"realm"` // 0 = any realm
	TargetRegion uint16 `yaml:"target_region"`
	TargetX      uint32 `yaml:"target_x"`
	TargetY      uint32 `yaml:"target_y"`
	TargetZ      uint16 `yaml:"target_z"`
	Heading      uint16 `yaml:"heading"`
	Confirm      string `yaml:"confirm"` // question shown before the jump, empty = none
	Script       string `yaml:"script"`  // Lua check function, empty = none
	Note         string `yaml:"note"`
}

// ZonePointTable indexes zone points by id.
type ZonePointTable struct {
	points map[uint16]*ZonePoint
}

// LoadZonePointTable loads zone_points.yaml.
func LoadZonePointTable(path string) (*ZonePointTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read zone points: %w", err)
	}
	var entries []ZonePoint
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse zone points: %w", err)
	}
	t := &ZonePointTable{points: make(map[uint16]*ZonePoint, len(entries))}
	for i := range entries {
		e := &entries[i]
		if _, dup := t.points[e.ID]; dup {
			return nil, fmt.Errorf("zone point %d defined twice", e.ID)
		}
		t.points[e.ID] = e
	}
	return t, nil
}

// Get returns the zone point with id, or nil.
func (t *ZonePointTable) Get(id uint16) *ZonePoint {
	return t.points[id]
}

// Count returns the number of zone points loaded.
func (t *ZonePointTable) Count() int {
	return len(t.points)
}
