package game

import (
	"fmt"
	"math/rand/v2"

	"github.com/timvisee/merge-mania/internal/catalog"
)

// Grid is a fixed-size inventory addressed by cell index only.
type Grid struct {
	cells []*ItemInstance
}

// NewGrid creates an empty grid with size cells.
func NewGrid(size int) *Grid {
	return &Grid{cells: make([]*ItemInstance, size)}
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	return len(g.cells)
}

// InRange reports whether index addresses a cell.
func (g *Grid) InRange(index int) bool {
	return index >= 0 && index < len(g.cells)
}

func (g *Grid) mustRange(index int) {
	if !g.InRange(index) {
		panic(fmt.Sprintf("grid index %d out of range [0,%d)", index, len(g.cells)))
	}
}

// Get returns the occupant of a cell, nil when empty. Panics when index is out
// of range.
func (g *Grid) Get(index int) *ItemInstance {
	g.mustRange(index)
	return g.cells[index]
}

// Set replaces the occupant of a cell. Panics when index is out of range.
func (g *Grid) Set(index int, item *ItemInstance) {
	g.mustRange(index)
	g.cells[index] = item
}

// Clear empties a cell.
func (g *Grid) Clear(index int) {
	g.Set(index, nil)
}

// Swap exchanges the contents of two cells.
func (g *Grid) Swap(a, b int) {
	g.mustRange(a)
	g.mustRange(b)
	g.cells[a], g.cells[b] = g.cells[b], g.cells[a]
}

// scan visits every cell once starting at a random offset and returns the
// first index for which match is true.
func (g *Grid) scan(rng *rand.Rand, match func(*ItemInstance) bool) (int, bool) {
	n := len(g.cells)
	if n == 0 {
		return 0, false
	}

	start := rng.IntN(n)
	for i := range n {
		idx := (start + i) % n
		if match(g.cells[idx]) {
			return idx, true
		}
	}
	return 0, false
}

// FindFreeCell returns a random empty cell.
func (g *Grid) FindFreeCell(rng *rand.Rand) (int, bool) {
	return g.scan(rng, func(it *ItemInstance) bool {
		return it == nil
	})
}

// Place puts item in a random empty cell. Returns false when the grid is full.
func (g *Grid) Place(item *ItemInstance, rng *rand.Rand) (int, bool) {
	idx, ok := g.FindFreeCell(rng)
	if !ok {
		return 0, false
	}
	g.cells[idx] = item
	return idx, true
}

// RemoveOne clears a random cell holding ref and returns its index.
func (g *Grid) RemoveOne(ref catalog.ItemRef, rng *rand.Rand) (int, bool) {
	idx, ok := g.scan(rng, func(it *ItemInstance) bool {
		return it != nil && it.Ref == ref
	})
	if !ok {
		return 0, false
	}
	g.cells[idx] = nil
	return idx, true
}

// CountFree returns the number of empty cells.
func (g *Grid) CountFree() int {
	free := 0
	for _, it := range g.cells {
		if it == nil {
			free++
		}
	}
	return free
}

// CountOccupied returns the number of filled cells.
func (g *Grid) CountOccupied() int {
	return len(g.cells) - g.CountFree()
}

// HasFree reports whether at least one cell is empty.
func (g *Grid) HasFree() bool {
	for _, it := range g.cells {
		if it == nil {
			return true
		}
	}
	return false
}

// Count returns how many cells hold ref.
func (g *Grid) Count(ref catalog.ItemRef) uint32 {
	var n uint32
	for _, it := range g.cells {
		if it != nil && it.Ref == ref {
			n++
		}
	}
	return n
}

// HasQuantity reports whether at least n cells hold ref.
func (g *Grid) HasQuantity(ref catalog.ItemRef, n uint32) bool {
	return g.Count(ref) >= n
}
