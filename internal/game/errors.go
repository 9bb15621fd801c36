package game

import "errors"

// Action validation failures. Any of these means the action had no effect.
var (
	ErrInvalidCell           = errors.New("cell index out of range")
	ErrSameCell              = errors.New("cells must differ")
	ErrCellEmpty             = errors.New("cell is empty")
	ErrCellOccupied          = errors.New("cell is occupied")
	ErrNotMergeable          = errors.New("item cannot be merged")
	ErrMergeMismatch         = errors.New("items do not match")
	ErrUnknownItem           = errors.New("unknown item")
	ErrNotBuyable            = errors.New("item cannot be bought")
	ErrInsufficientResources = errors.New("insufficient resources")
	ErrGameNotRunning        = errors.New("game is not running")
	ErrOutpostRepeated       = errors.New("outpost scanned twice in a row")
)
