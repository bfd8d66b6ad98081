package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Merchant windows show pages of 30 slots.
const (
	MerchantPageSize = 30
	MerchantMaxPages = 5
)

// MerchantItem is one slot of a merchant list.
type MerchantItem struct {
	Page       byte   `yaml:"page"`
	Slot       byte   `yaml:"slot"`
	TemplateID string `yaml:"template"`
	Price      int64  `yaml:"price"` // copper, 0 = template price
}

// MerchantList is the stock of one merchant.
type MerchantList struct {
	ID    string         `yaml:"id"`
	Items []MerchantItem `yaml:"items"`

	bySlot map[uint16]*MerchantItem
}

// Item resolves the packed page/slot index sent by the client.
func (l *MerchantList) Item(itemSlot uint16) *MerchantItem {
	return l.bySlot[itemSlot]
}

// PackSlot builds the client's itemSlot value for page/slot.
func PackSlot(page, slot byte) uint16 {
	return uint16(page)*MerchantPageSize + uint16(slot)
}

type merchantFile struct {
	Lists []*MerchantList `yaml:"merchants"`
}

// MerchantTable holds every merchant list by id. Merchants standing in a
// region point at a list through RegionInfo.Merchants.
type MerchantTable struct {
	lists map[string]*MerchantList
}

// LoadMerchantTable loads merchant_lists.yaml.
func LoadMerchantTable(path string) (*MerchantTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read merchant lists: %w", err)
	}
	var f merchantFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse merchant lists: %w", err)
	}
	t := &MerchantTable{lists: make(map[string]*MerchantList, len(f.Lists))}
	for _, l := range f.Lists {
		l.bySlot = make(map[uint16]*MerchantItem, len(l.Items))
		for i := range l.Items {
			it := &l.Items[i]
			if it.Page >= MerchantMaxPages || it.Slot >= MerchantPageSize {
				return nil, fmt.Errorf("merchant %s: slot %d/%d out of range", l.ID, it.Page, it.Slot)
			}
			l.bySlot[PackSlot(it.Page, it.Slot)] = it
		}
		t.lists[l.ID] = l
	}
	return t, nil
}

// Get returns the list with id, or nil.
func (t *MerchantTable) Get(id string) *MerchantList {
	return t.lists[id]
}

// Count returns the number of merchant lists loaded.
func (t *MerchantTable) Count() int {
	return len(t.lists)
}
