package catalog

import (
	"fmt"
	"math/rand/v2"

	"github.com/pixil98/go-errors"
)

// Drop is one weighted entry of an item's drop table.
type Drop struct {
	Item   ItemRef `toml:"item" yaml:"item" json:"item"`
	Chance float64 `toml:"chance" yaml:"chance" json:"chance"`
}

// Item holds the immutable rules for one kind of item.
type Item struct {
	Ref ItemRef `toml:"ref" yaml:"ref" json:"ref"`

	// Merge is the item two of these merge into, empty if the item is final.
	Merge ItemRef `toml:"merge,omitempty" yaml:"merge,omitempty" json:"merge,omitempty"`

	Tier  string `toml:"tier" yaml:"tier" json:"tier"`
	Name  string `toml:"name" yaml:"name" json:"name"`
	Label string `toml:"label,omitempty" yaml:"label,omitempty" json:"label,omitempty"`

	// Buy is the purchase cost, the item is not buyable when it is empty.
	Buy  []Amount `toml:"buy,omitempty" yaml:"buy,omitempty" json:"buy,omitempty"`
	Sell uint64   `toml:"sell" yaml:"sell" json:"sell"`

	// DropInterval is the number of ticks between drops, zero disables dropping.
	DropInterval uint64 `toml:"drop_interval,omitempty" yaml:"drop_interval,omitempty" json:"drop_interval,omitempty"`
	// DropLimit bounds the total number of drops, nil means unlimited.
	DropLimit *uint32 `toml:"drop_limit,omitempty" yaml:"drop_limit,omitempty" json:"drop_limit,omitempty"`
	Drops     []Drop  `toml:"drops,omitempty" yaml:"drops,omitempty" json:"drops,omitempty"`

	SpritePath string `toml:"sprite_path" yaml:"sprite_path" json:"sprite_path"`
}

// CanUpgrade reports whether the item has a merge target.
func (it *Item) CanUpgrade() bool {
	return it.Merge != ""
}

// CanBuy reports whether the item has a purchase cost.
func (it *Item) CanBuy() bool {
	return len(it.Buy) > 0
}

// IsFactory reports whether the item is a factory that periodically drops items.
func (it *Item) IsFactory() bool {
	return it.DropInterval > 0 && len(it.Drops) > 0
}

// RandomDrop samples the drop table by weight. Entries are walked in
// declaration order, so equal weights resolve to the earlier entry. Returns
// false when the table is empty or all weights are zero.
func (it *Item) RandomDrop(rng *rand.Rand) (ItemRef, bool) {
	var total float64
	for _, d := range it.Drops {
		if d.Chance > 0 {
			total += d.Chance
		}
	}
	if total <= 0 {
		return "", false
	}

	r := rng.Float64() * total
	var last ItemRef
	for _, d := range it.Drops {
		if d.Chance <= 0 {
			continue
		}
		if r < d.Chance {
			return d.Item, true
		}
		r -= d.Chance
		last = d.Item
	}

	// float rounding can leave a tiny positive remainder
	return last, true
}

// Validate checks the item in isolation. References to other items are
// checked by the Catalog.
func (it *Item) Validate() error {
	el := errors.NewErrorList()

	el.Add(it.Ref.Validate())
	if it.Merge != "" {
		el.Add(it.Merge.Validate())
		if it.Merge == it.Ref {
			el.Add(fmt.Errorf("item cannot merge into itself"))
		}
	}
	if it.Name == "" {
		el.Add(fmt.Errorf("name is required"))
	}
	if it.Tier == "" {
		el.Add(fmt.Errorf("tier is required"))
	}
	for i, a := range it.Buy {
		if err := a.Validate(); err != nil {
			el.Add(fmt.Errorf("buy %d: %w", i, err))
		}
	}
	if it.DropInterval > 0 && len(it.Drops) == 0 {
		el.Add(fmt.Errorf("drop_interval requires drops"))
	}
	if it.DropInterval == 0 && len(it.Drops) > 0 {
		el.Add(fmt.Errorf("drops require a drop_interval"))
	}
	for i, d := range it.Drops {
		if err := d.Item.Validate(); err != nil {
			el.Add(fmt.Errorf("drop %d: %w", i, err))
		}
		if d.Chance < 0 {
			el.Add(fmt.Errorf("drop %d: chance must not be negative", i))
		}
	}

	return el.Err()
}
