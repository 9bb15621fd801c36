package catalog

import (
	"fmt"
	"strings"
)

// ItemRef identifies an item by tier and level, written as "<tier>.<level>".
// References are used as map keys and are replaced wholesale, never edited.
type ItemRef string

// NewItemRef builds a reference from its tier and level parts.
func NewItemRef(tier, level string) ItemRef {
	return ItemRef(tier + "." + level)
}

func (r ItemRef) String() string {
	return string(r)
}

// Tier returns the part before the separator.
func (r ItemRef) Tier() string {
	tier, _, _ := strings.Cut(string(r), ".")
	return tier
}

// Level returns the part after the separator.
func (r ItemRef) Level() string {
	_, level, _ := strings.Cut(string(r), ".")
	return level
}

// Validate checks the reference has a non-empty tier and level.
func (r ItemRef) Validate() error {
	tier, level, ok := strings.Cut(string(r), ".")
	if !ok || tier == "" || level == "" || strings.Contains(level, ".") {
		return fmt.Errorf("item ref %q must have the form <tier>.<level>", string(r))
	}
	return nil
}
