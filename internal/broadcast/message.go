package broadcast

import (
	"github.com/timvisee/merge-mania/internal/catalog"
	"github.com/timvisee/merge-mania/internal/game"
)

// Kind names the type of a message.
type Kind string

const (
	KindInventory           Kind = "inventory"
	KindInventoryCell       Kind = "inventory_cell"
	KindInventoryBalances   Kind = "inventory_balances"
	KindInventoryDiscovered Kind = "inventory_discovered"
	KindStats               Kind = "stats"
	KindGameState           Kind = "game_state"
	KindToast               Kind = "toast"
	KindCodeResult          Kind = "code_result"
	KindLeaderboard         Kind = "leaderboard"
	KindOutpostToken        Kind = "outpost_token"
)

// Message is one record handed to a Sink. Data holds one of the payload
// types below.
type Message struct {
	Kind Kind `json:"kind"`
	Data any  `json:"data"`
}

type Cell struct {
	Index int            `json:"index"`
	Item  *game.ItemView `json:"item"`
}

type Balances struct {
	Money  uint64 `json:"money"`
	Energy uint64 `json:"energy"`
}

type Discovered struct {
	New []catalog.ItemRef `json:"new"`
	All []catalog.ItemRef `json:"all"`
}

type GameState struct {
	Running bool   `json:"running"`
	Tick    uint64 `json:"tick"`
	GameID  string `json:"game_id"`
}

type Toast struct {
	Text string `json:"text"`
}

type CodeResult struct {
	Success bool   `json:"success"`
	Money   uint64 `json:"money"`
	Energy  uint64 `json:"energy"`
}

type OutpostToken struct {
	Outpost uint32 `json:"outpost"`
	Token   string `json:"token"`
}
