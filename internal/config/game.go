package config

import (
	"time"

	"github.com/timvisee/merge-mania/internal/game"
)

// Permissions maps every configured user to what they may do.
func (c *Config) Permissions() map[uint32]game.Permissions {
	perms := make(map[uint32]game.Permissions, len(c.Users))
	for _, u := range c.Users {
		perms[u.ID] = game.Permissions{
			Play:  u.RoleGame,
			Admin: u.RoleAdmin,
		}
	}
	return perms
}

// PlayerIDs returns the ids of users allowed to play, in config order.
func (c *Config) PlayerIDs() []uint32 {
	var ids []uint32
	for _, u := range c.Users {
		if u.RoleGame {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

// WorldOptions returns the options a world is built with. A zero seed is
// replaced by one derived from the clock.
func (c *Config) WorldOptions() game.Options {
	seed := c.Game.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	return game.Options{
		GridSize: c.Game.GridSize,
		Seed:     seed,
		Defaults: game.Defaults{
			Money:     c.Defaults.Money,
			Energy:    c.Defaults.Energy,
			Inventory: c.Defaults.Inventory,
		},
		Permissions: c.Permissions(),
	}
}

// Reward returns the money and energy credited for one outpost scan.
func (c *OutpostConfig) Reward() game.Reward {
	return game.Reward{
		Money:  c.RewardMoney,
		Energy: c.RewardEnergy,
	}
}
