package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DoorSpawn places a door at startup.
type DoorSpawn struct {
	ID       uint32 `yaml:"id"`
	ObjectID uint16 `yaml:"object_id"`
	Region   uint16 `yaml:"region"`
	X        uint32 `yaml:"x"`
	Y        uint32 `yaml:"y"`
	Z        uint16 `yaml:"z"`
	Open     bool   `yaml:"open"`
}

// LoadDoors loads doors.yaml.
func LoadDoors(path string) ([]DoorSpawn, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read doors: %w", err)
	}
	var entries []DoorSpawn
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse doors: %w", err)
	}
	return entries, nil
}
