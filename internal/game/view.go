package game

import "github.com/timvisee/merge-mania/internal/catalog"

// ItemView is a read-only picture of one cell's occupant along with the
// catalog metadata a client needs to render it.
type ItemView struct {
	Ref            catalog.ItemRef `json:"ref"`
	Name           string          `json:"name,omitempty"`
	Tier           string          `json:"tier,omitempty"`
	Label          string          `json:"label,omitempty"`
	Sell           uint64          `json:"sell"`
	DropInterval   uint64          `json:"drop_interval,omitempty"`
	DropLimit      *uint32         `json:"drop_limit,omitempty"`
	RemainingDrops *uint32         `json:"remaining_drops,omitempty"`
	Sprite         string          `json:"sprite,omitempty"`
	Mergeable      bool            `json:"mergeable"`
	Queued         int             `json:"queued"`
}

func newItemView(it *ItemInstance) *ItemView {
	v := &ItemView{
		Ref:    it.Ref,
		Name:   string(it.Ref),
		Queued: len(it.Queue),
	}
	if it.RemainingDrops != nil {
		remaining := *it.RemainingDrops
		v.RemainingDrops = &remaining
	}

	item := it.Item()
	if item == nil {
		return v
	}
	v.Name = item.Name
	v.Tier = item.Tier
	v.Label = item.Label
	v.Sell = item.Sell
	v.DropInterval = item.DropInterval
	v.DropLimit = item.DropLimit
	v.Sprite = item.SpritePath
	v.Mergeable = item.CanUpgrade()
	return v
}

// InventoryView is a read-only picture of a user's inventory. Empty cells
// are nil.
type InventoryView struct {
	Money      uint64            `json:"money"`
	Energy     uint64            `json:"energy"`
	Cells      []*ItemView       `json:"cells"`
	Discovered []catalog.ItemRef `json:"discovered"`
}

// Cell returns the view of a cell, nil when empty or out of range.
func (v InventoryView) Cell(index int) *ItemView {
	if index < 0 || index >= len(v.Cells) {
		return nil
	}
	return v.Cells[index]
}
