package broadcast

import (
	"fmt"

	"github.com/timvisee/merge-mania/internal/game"
)

// DefaultThreshold is the number of changed cells at which a full inventory
// is sent instead of per-cell updates.
const DefaultThreshold = 16

// Sink delivers messages to users.
type Sink interface {
	Publish(userID uint32, msg Message) error
	PublishAll(msg Message) error
}

// Broadcaster turns game changes into messages for a Sink.
type Broadcaster struct {
	sink      Sink
	threshold int
}

func New(sink Sink, threshold int) *Broadcaster {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Broadcaster{sink: sink, threshold: threshold}
}

// Messages decides what to send for a change. A batch of cells at or above
// the threshold becomes one full inventory which also carries balances. New
// discoveries are always announced on their own.
func (b *Broadcaster) Messages(ch game.Change) []Message {
	var msgs []Message
	if len(ch.Cells) >= b.threshold {
		msgs = append(msgs, inventory(ch.View))
	} else {
		msgs = make([]Message, 0, len(ch.Cells)+2)
		for _, idx := range ch.Cells {
			msgs = append(msgs, Message{
				Kind: KindInventoryCell,
				Data: Cell{Index: idx, Item: ch.View.Cell(idx)},
			})
		}
		if ch.Balances {
			msgs = append(msgs, balances(ch.View))
		}
	}
	if len(ch.Discovered) > 0 {
		msgs = append(msgs, Message{
			Kind: KindInventoryDiscovered,
			Data: Discovered{New: ch.Discovered, All: ch.View.Discovered},
		})
	}
	return msgs
}

// Change publishes the messages for a change to its user.
func (b *Broadcaster) Change(ch game.Change) error {
	return b.publish(ch.UserID, b.Messages(ch)...)
}

// Inventory sends a full inventory.
func (b *Broadcaster) Inventory(userID uint32, v game.InventoryView) error {
	return b.publish(userID, inventory(v))
}

// Balances sends the money and energy of an inventory.
func (b *Broadcaster) Balances(userID uint32, v game.InventoryView) error {
	return b.publish(userID, balances(v))
}

func (b *Broadcaster) Stats(userID uint32, s game.Stats) error {
	return b.publish(userID, Message{Kind: KindStats, Data: s})
}

func (b *Broadcaster) Toast(userID uint32, text string) error {
	return b.publish(userID, Message{Kind: KindToast, Data: Toast{Text: text}})
}

func (b *Broadcaster) CodeResult(userID uint32, success bool, credit game.Reward) error {
	return b.publish(userID, Message{
		Kind: KindCodeResult,
		Data: CodeResult{Success: success, Money: credit.Money, Energy: credit.Energy},
	})
}

func (b *Broadcaster) Leaderboard(userID uint32, board []game.Standing) error {
	return b.publish(userID, Message{Kind: KindLeaderboard, Data: board})
}

func (b *Broadcaster) OutpostToken(userID uint32, outpost uint32, token string) error {
	return b.publish(userID, Message{
		Kind: KindOutpostToken,
		Data: OutpostToken{Outpost: outpost, Token: token},
	})
}

// GameState sends the game state to one user.
func (b *Broadcaster) GameState(userID uint32, s GameState) error {
	return b.publish(userID, Message{Kind: KindGameState, Data: s})
}

// GameStateAll sends the game state to everyone.
func (b *Broadcaster) GameStateAll(s GameState) error {
	if err := b.sink.PublishAll(Message{Kind: KindGameState, Data: s}); err != nil {
		return fmt.Errorf("publishing game state: %w", err)
	}
	return nil
}

// publish sends every message and returns the first error.
func (b *Broadcaster) publish(userID uint32, msgs ...Message) error {
	var firstErr error
	for _, m := range msgs {
		if err := b.sink.Publish(userID, m); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("publishing %s to user %d: %w", m.Kind, userID, err)
		}
	}
	return firstErr
}

func inventory(v game.InventoryView) Message {
	return Message{Kind: KindInventory, Data: v}
}

func balances(v game.InventoryView) Message {
	return Message{Kind: KindInventoryBalances, Data: Balances{Money: v.Money, Energy: v.Energy}}
}
