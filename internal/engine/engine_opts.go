package engine

import (
	"time"

	"github.com/timvisee/merge-mania/internal/game"
	"github.com/timvisee/merge-mania/internal/outpost"
)

type EngineOpt func(*Engine)

// WithIndex records every save in idx, keeping the newest keep saves. A keep
// of zero never prunes.
func WithIndex(idx SaveIndex, keep int) EngineOpt {
	return func(e *Engine) {
		e.index = idx
		e.keep = keep
	}
}

// WithOutposts enables real code scans that credit reward.
func WithOutposts(issuer *outpost.Issuer, reward game.Reward) EngineOpt {
	return func(e *Engine) {
		e.issuer = issuer
		e.reward = reward
	}
}

// WithReward sets what a scan credits without enabling real codes.
func WithReward(reward game.Reward) EngineOpt {
	return func(e *Engine) {
		e.reward = reward
	}
}

// WithPlayers sets the users that receive their inventory after a reset.
func WithPlayers(ids []uint32) EngineOpt {
	return func(e *Engine) {
		e.players = ids
	}
}

// WithClock replaces the clock used for outpost tokens.
func WithClock(now func() time.Time) EngineOpt {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}
