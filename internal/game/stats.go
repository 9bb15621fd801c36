package game

// Stats are cumulative per-user counters. They are plain fields mutated only
// while the owning user's lock is held.
type Stats struct {
	Merges uint64 `json:"merges"`
	Buys   uint64 `json:"buys"`
	Sells  uint64 `json:"sells"`
	Swaps  uint64 `json:"swaps"`
	Scans  uint64 `json:"scans"`
	Drops  uint64 `json:"drops"`

	MoneySpent   uint64 `json:"money_spent"`
	MoneyEarned  uint64 `json:"money_earned"`
	EnergySpent  uint64 `json:"energy_spent"`
	EnergyEarned uint64 `json:"energy_earned"`
}
