package game

import (
	"math/rand/v2"

	"github.com/timvisee/merge-mania/internal/catalog"
)

// QueueCapacity is the number of drops an item can hold before placement.
const QueueCapacity = 2

// Catalog resolves item references to their rules.
type Catalog interface {
	Lookup(ref catalog.ItemRef) (*catalog.Item, bool)
}

// ItemInstance is the occupant of one grid cell.
//
// An instance with a drop interval is scheduled: once the tick reaches
// NextDrop it samples its drop table and queues the result. A bounded
// instance counts down RemainingDrops and is removed from the grid once that
// reaches zero and the queue has been placed.
type ItemInstance struct {
	Ref catalog.ItemRef

	// NextDrop is the tick of the next drop, nil when the item never drops.
	NextDrop *uint64
	// RemainingDrops is nil for unlimited drops.
	RemainingDrops *uint32
	// Queue holds drops waiting for a free cell, oldest first.
	Queue []catalog.ItemRef

	// item is nil while the reference is unresolved, which disables updates
	item *catalog.Item
}

// NewItemInstance creates an instance of item. Factories get their first drop
// scheduled one interval after tick.
func NewItemInstance(item *catalog.Item, tick uint64) *ItemInstance {
	inst := &ItemInstance{Ref: item.Ref}
	inst.attach(item)
	if inst.NextDrop != nil {
		next := tick + item.DropInterval
		inst.NextDrop = &next
	}
	return inst
}

// attach links the catalog entry and derives the drop schedule from it. The
// schedule is due immediately.
func (i *ItemInstance) attach(item *catalog.Item) {
	i.item = item
	i.NextDrop = nil
	i.RemainingDrops = nil
	if !item.IsFactory() {
		return
	}

	var due uint64
	i.NextDrop = &due
	if item.DropLimit != nil {
		remaining := *item.DropLimit
		i.RemainingDrops = &remaining
	}
}

// Item returns the resolved catalog entry, nil if unresolved.
func (i *ItemInstance) Item() *catalog.Item {
	return i.item
}

// resolve links the instance to its catalog entry without touching the
// persisted drop schedule.
func (i *ItemInstance) resolve(cat Catalog) bool {
	item, ok := cat.Lookup(i.Ref)
	if !ok {
		i.item = nil
		return false
	}
	i.item = item
	return true
}

// Exhausted reports whether a bounded instance has no drops left.
func (i *ItemInstance) Exhausted() bool {
	return i.RemainingDrops != nil && *i.RemainingDrops == 0
}

// Removable reports whether the instance is spent and may be cleared.
func (i *ItemInstance) Removable() bool {
	return i.Exhausted() && len(i.Queue) == 0
}

// Update fires a scheduled drop when tick has reached it. Returns true when a
// drop was queued. A drop that does not fit the queue is lost.
func (i *ItemInstance) Update(tick uint64, rng *rand.Rand) bool {
	if i.item == nil || i.NextDrop == nil || tick < *i.NextDrop || i.Exhausted() {
		return false
	}

	next := tick + i.item.DropInterval
	i.NextDrop = &next

	ref, ok := i.item.RandomDrop(rng)
	if !ok {
		return false
	}
	if len(i.Queue) >= QueueCapacity {
		return false
	}
	i.Queue = append(i.Queue, ref)

	if i.RemainingDrops != nil {
		*i.RemainingDrops--
	}
	return true
}

// pop takes the oldest queued drop.
func (i *ItemInstance) pop() (catalog.ItemRef, bool) {
	if len(i.Queue) == 0 {
		return "", false
	}
	ref := i.Queue[0]
	i.Queue = i.Queue[1:]
	return ref, true
}

// CanUpgrade reports whether the catalog entry defines a merge target.
func (i *ItemInstance) CanUpgrade() bool {
	return i.item != nil && i.item.CanUpgrade()
}

// Upgrade replaces the instance with its merge target. The new schedule is
// due immediately and queued drops of the old item are discarded.
func (i *ItemInstance) Upgrade(cat Catalog) bool {
	if !i.CanUpgrade() {
		return false
	}
	target, ok := cat.Lookup(i.item.Merge)
	if !ok {
		return false
	}

	i.Ref = target.Ref
	i.Queue = nil
	i.attach(target)
	return true
}

// clone returns a deep copy that shares the catalog entry.
func (i *ItemInstance) clone() *ItemInstance {
	c := &ItemInstance{Ref: i.Ref, item: i.item}
	if i.NextDrop != nil {
		next := *i.NextDrop
		c.NextDrop = &next
	}
	if i.RemainingDrops != nil {
		remaining := *i.RemainingDrops
		c.RemainingDrops = &remaining
	}
	if len(i.Queue) > 0 {
		c.Queue = append([]catalog.ItemRef(nil), i.Queue...)
	}
	return c
}
