package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ItemTemplate is the static definition of an item.
type ItemTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Level       byte   `yaml:"level"`
	Price       int64  `yaml:"price"` // copper
	MaxCount    uint16 `yaml:"max_count"`
	Description string `yaml:"description"`
}

// ItemTable indexes item templates by id.
type ItemTable struct {
	items map[string]*ItemTemplate
}

// LoadItemTable loads item_templates.yaml.
func LoadItemTable(path string) (*ItemTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item templates: %w", err)
	}
	var entries []ItemTemplate
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse item templates: %w", err)
	}
	t := &ItemTable{items: make(map[string]*ItemTemplate, len(entries))}
	for i := range entries {
		e := &entries[i]
		if e.MaxCount == 0 {
			e.MaxCount = 1
		}
		t.items[e.ID] = e
	}
	return t, nil
}

// Get returns the template with id, or nil.
func (t *ItemTable) Get(id string) *ItemTemplate {
	return t.items[id]
}

// Count returns the number of templates loaded.
func (t *ItemTable) Count() int {
	return len(t.items)
}
