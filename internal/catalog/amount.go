package catalog

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// AmountKind tells which resource an Amount is expressed in.
type AmountKind int

const (
	AmountInvalid AmountKind = iota
	AmountMoney
	AmountEnergy
	AmountItem
)

// Amount is a typed quantity of money, energy or a specific item. Exactly one of
// Money, Energy or Item is set.
type Amount struct {
	Money    uint64  `toml:"money,omitempty" yaml:"money,omitempty" json:"money,omitempty"`
	Energy   uint64  `toml:"energy,omitempty" yaml:"energy,omitempty" json:"energy,omitempty"`
	Item     ItemRef `toml:"item,omitempty" yaml:"item,omitempty" json:"item,omitempty"`
	Quantity uint32  `toml:"quantity,omitempty" yaml:"quantity,omitempty" json:"quantity,omitempty"`
}

// Money returns a money amount.
func Money(v uint64) Amount {
	return Amount{Money: v}
}

// Energy returns an energy amount.
func Energy(v uint64) Amount {
	return Amount{Energy: v}
}

// Items returns an amount of quantity units of the given item.
func Items(ref ItemRef, quantity uint32) Amount {
	return Amount{Item: ref, Quantity: quantity}
}

// Kind reports which resource the amount uses.
func (a Amount) Kind() AmountKind {
	set := 0
	kind := AmountInvalid
	if a.Money > 0 {
		set++
		kind = AmountMoney
	}
	if a.Energy > 0 {
		set++
		kind = AmountEnergy
	}
	if a.Item != "" {
		set++
		kind = AmountItem
	}
	if set != 1 {
		return AmountInvalid
	}
	return kind
}

// Units returns the item quantity, an item amount without a quantity counts as one.
func (a Amount) Units() uint32 {
	if a.Quantity == 0 {
		return 1
	}
	return a.Quantity
}

// Validate satisfies the config validation contract.
func (a Amount) Validate() error {
	el := errors.NewErrorList()

	switch a.Kind() {
	case AmountInvalid:
		el.Add(fmt.Errorf("amount must set exactly one of money, energy or item"))
	case AmountItem:
		el.Add(a.Item.Validate())
	default:
		if a.Quantity != 0 {
			el.Add(fmt.Errorf("quantity is only valid for item amounts"))
		}
	}

	return el.Err()
}

// Costs is a list of amounts with same-kind entries summed together.
type Costs struct {
	Money  uint64
	Energy uint64
	Items  map[ItemRef]uint32

	// order keeps the first-seen order of item refs so removal is deterministic
	order []ItemRef
}

// Aggregate sums amounts by kind. Invalid amounts are skipped.
func Aggregate(amounts []Amount) Costs {
	c := Costs{Items: map[ItemRef]uint32{}}
	for _, a := range amounts {
		switch a.Kind() {
		case AmountMoney:
			c.Money += a.Money
		case AmountEnergy:
			c.Energy += a.Energy
		case AmountItem:
			if _, ok := c.Items[a.Item]; !ok {
				c.order = append(c.order, a.Item)
			}
			c.Items[a.Item] += a.Units()
		}
	}
	return c
}

// ItemRefs returns the item refs in the order they first appeared.
func (c Costs) ItemRefs() []ItemRef {
	return c.order
}
