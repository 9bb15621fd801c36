package catalog

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// Catalog is the read-only item configuration. It is built once and shared
// by reference, so it needs no locking.
type Catalog struct {
	items map[ItemRef]*Item
	order []ItemRef
}

// New builds a catalog from item definitions, validating every item and every
// reference between items.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make(map[ItemRef]*Item, len(items)),
		order: make([]ItemRef, 0, len(items)),
	}

	el := errors.NewErrorList()
	for i := range items {
		it := items[i]
		if err := it.Validate(); err != nil {
			el.Add(fmt.Errorf("item %q: %w", it.Ref, err))
			continue
		}
		if _, ok := c.items[it.Ref]; ok {
			el.Add(fmt.Errorf("duplicate item ref: %s", it.Ref))
			continue
		}
		c.items[it.Ref] = &it
		c.order = append(c.order, it.Ref)
	}

	for _, ref := range c.order {
		el.Add(c.resolve(c.items[ref]))
	}

	if err := el.Err(); err != nil {
		return nil, err
	}
	return c, nil
}

// resolve checks that everything an item points at exists.
func (c *Catalog) resolve(it *Item) error {
	el := errors.NewErrorList()

	if it.Merge != "" {
		if _, ok := c.items[it.Merge]; !ok {
			el.Add(fmt.Errorf("item %q: merge target %q not found", it.Ref, it.Merge))
		}
	}
	for _, d := range it.Drops {
		if _, ok := c.items[d.Item]; !ok {
			el.Add(fmt.Errorf("item %q: drop %q not found", it.Ref, d.Item))
		}
	}
	for _, a := range it.Buy {
		if a.Kind() != AmountItem {
			continue
		}
		if _, ok := c.items[a.Item]; !ok {
			el.Add(fmt.Errorf("item %q: buy cost item %q not found", it.Ref, a.Item))
		}
	}

	return el.Err()
}

// Lookup returns the item for a reference.
func (c *Catalog) Lookup(ref ItemRef) (*Item, bool) {
	it, ok := c.items[ref]
	return it, ok
}

// Items returns all items in declaration order.
func (c *Catalog) Items() []*Item {
	items := make([]*Item, 0, len(c.order))
	for _, ref := range c.order {
		items = append(items, c.items[ref])
	}
	return items
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.order)
}
