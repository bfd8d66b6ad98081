package world

import "errors"

// Backpack slot range of a character inventory.
const (
	BackpackFirstSlot uint16 = 40
	BackpackLastSlot  uint16 = 79
)

var (
	ErrInventoryFull = errors.New("inventory full")
	ErrEmptySlot     = errors.New("inventory slot empty")
)

// Item is one stack of an item template in a slot.
type Item struct {
	TemplateID string
	Name       string
	Count      uint16
}

// Inventory maps slot numbers to items. Owned by the player's region goroutine.
type Inventory struct {
	Items map[uint16]*Item
}

func NewInventory() *Inventory {
	return &Inventory{Items: make(map[uint16]*Item)}
}

// Add puts the item into the first free backpack slot and returns that slot.
func (inv *Inventory) Add(it *Item) (uint16, error) {
	for slot := BackpackFirstSlot; slot <= BackpackLastSlot; slot++ {
		if _, used := inv.Items[slot]; !used {
			inv.Items[slot] = it
			return slot, nil
		}
	}
	return 0, ErrInventoryFull
}

// Remove empties slot and returns what was there.
func (inv *Inventory) Remove(slot uint16) (*Item, error) {
	it, ok := inv.Items[slot]
	if !ok {
		return nil, ErrEmptySlot
	}
	delete(inv.Items, slot)
	return it, nil
}

// Get returns the item in slot, or nil.
func (inv *Inventory) Get(slot uint16) *Item {
	return inv.Items[slot]
}

// Count returns the number of occupied slots.
func (inv *Inventory) Count() int {
	return len(inv.Items)
}
