package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pixil98/go-errors"
	"github.com/timvisee/merge-mania/internal/catalog"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Game     GameConfig     `toml:"game" yaml:"game"`
	Logging  LoggingConfig  `toml:"logging" yaml:"logging"`
	Nats     NatsConfig     `toml:"nats" yaml:"nats"`
	Storage  StorageConfig  `toml:"storage" yaml:"storage"`
	Index    IndexConfig    `toml:"index" yaml:"index"`
	Outposts OutpostConfig  `toml:"outposts" yaml:"outposts"`
	Defaults DefaultsConfig `toml:"defaults" yaml:"defaults"`
	Users    []UserConfig   `toml:"users" yaml:"users"`
	Items    []catalog.Item `toml:"items" yaml:"items"`
}

type GameConfig struct {
	TickInterval       string `toml:"tick_interval" yaml:"tick_interval"`
	SaveInterval       string `toml:"save_interval" yaml:"save_interval"`
	GridSize           int    `toml:"grid_size" yaml:"grid_size"`
	BroadcastThreshold int    `toml:"broadcast_threshold" yaml:"broadcast_threshold"`
	Seed               uint64 `toml:"seed" yaml:"seed"`
	Reset              bool   `toml:"reset" yaml:"reset"`
	Language           string `toml:"language" yaml:"language"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"` // "json" or "console"
}

type NatsConfig struct {
	Host         string `toml:"host" yaml:"host"`
	Port         int    `toml:"port" yaml:"port"`
	StartTimeout string `toml:"start_timeout" yaml:"start_timeout"`
}

type StorageConfig struct {
	SnapshotPath string `toml:"snapshot_path" yaml:"snapshot_path"`
}

type IndexConfig struct {
	// Path of the SQLite file, empty disables the index.
	Path string `toml:"path" yaml:"path"`
	// Keep is how many saves to retain, zero keeps everything.
	Keep int `toml:"keep" yaml:"keep"`
}

type OutpostConfig struct {
	Secret       string `toml:"secret" yaml:"secret"`
	Count        uint32 `toml:"count" yaml:"count"`
	Interval     string `toml:"interval" yaml:"interval"`
	ValidAround  int    `toml:"valid_around" yaml:"valid_around"`
	RewardMoney  uint64 `toml:"reward_money" yaml:"reward_money"`
	RewardEnergy uint64 `toml:"reward_energy" yaml:"reward_energy"`
}

type DefaultsConfig struct {
	Money     uint64            `toml:"money" yaml:"money"`
	Energy    uint64            `toml:"energy" yaml:"energy"`
	Inventory []catalog.ItemRef `toml:"inventory" yaml:"inventory"`
}

type UserConfig struct {
	ID        uint32 `toml:"id" yaml:"id"`
	Name      string `toml:"name" yaml:"name"`
	RoleGame  bool   `toml:"role_game" yaml:"role_game"`
	RoleAdmin bool   `toml:"role_admin" yaml:"role_admin"`
}

// Load reads a config file on top of the defaults. Files ending in .yaml or
// .yml are decoded as YAML, everything else as TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Game: GameConfig{
			TickInterval:       "1s",
			SaveInterval:       "30s",
			GridSize:           16,
			BroadcastThreshold: 16,
			Language:           "en",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Nats: NatsConfig{
			Host:         "127.0.0.1",
			StartTimeout: "10s",
		},
		Storage: StorageConfig{
			SnapshotPath: "data/save.json.zst",
		},
		Outposts: OutpostConfig{
			Interval:    "30s",
			ValidAround: 2,
		},
	}
}

func (c *Config) Validate() error {
	el := errors.NewErrorList()

	el.Add(c.Game.validate())
	el.Add(c.Logging.validate())
	el.Add(c.Nats.validate())
	if c.Storage.SnapshotPath == "" {
		el.Add(fmt.Errorf("storage: snapshot_path is required"))
	}
	if c.Index.Keep < 0 {
		el.Add(fmt.Errorf("index: keep must not be negative"))
	}
	el.Add(c.Outposts.validate())

	seen := make(map[uint32]bool, len(c.Users))
	for i, u := range c.Users {
		if seen[u.ID] {
			el.Add(fmt.Errorf("user %d: duplicate id %d", i, u.ID))
		}
		seen[u.ID] = true
	}

	cat, err := c.Catalog()
	if err != nil {
		el.Add(fmt.Errorf("items: %w", err))
	} else {
		el.Add(c.Defaults.validate(cat, c.Game.GridSize))
	}

	return el.Err()
}

// Catalog builds the item catalog from the configured items.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	return catalog.New(c.Items)
}

func (c *GameConfig) validate() error {
	el := errors.NewErrorList()

	el.Add(validateDuration("tick_interval", c.TickInterval))
	el.Add(validateDuration("save_interval", c.SaveInterval))
	if c.GridSize <= 0 {
		el.Add(fmt.Errorf("game: grid_size must be positive"))
	}
	if c.BroadcastThreshold <= 0 {
		el.Add(fmt.Errorf("game: broadcast_threshold must be positive"))
	}
	if _, err := language.Parse(c.Language); err != nil {
		el.Add(fmt.Errorf("game: parsing language: %w", err))
	}

	return el.Err()
}

// TickDuration returns the tick interval. Only valid after Validate.
func (c *GameConfig) TickDuration() time.Duration {
	d, _ := time.ParseDuration(c.TickInterval)
	return d
}

// SaveDuration returns the autosave interval. Only valid after Validate.
func (c *GameConfig) SaveDuration() time.Duration {
	d, _ := time.ParseDuration(c.SaveInterval)
	return d
}

// Tag returns the language texts are rendered in, English if unset.
func (c *GameConfig) Tag() language.Tag {
	tag, err := language.Parse(c.Language)
	if err != nil {
		return language.English
	}
	return tag
}

func (c *LoggingConfig) validate() error {
	switch c.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Level)
	}
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
	return nil
}

func (c *NatsConfig) validate() error {
	if c.StartTimeout == "" {
		return nil
	}
	if _, err := time.ParseDuration(c.StartTimeout); err != nil {
		return fmt.Errorf("nats: parsing start_timeout: %w", err)
	}
	return nil
}

// StartTimeoutDuration returns the broker start timeout, zero if unset.
func (c *NatsConfig) StartTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.StartTimeout)
	return d
}

func (c *OutpostConfig) validate() error {
	el := errors.NewErrorList()

	el.Add(validateDuration("outposts interval", c.Interval))
	if c.Secret != "" && c.Count == 0 {
		el.Add(fmt.Errorf("outposts: count must be positive when a secret is set"))
	}
	if c.ValidAround < 0 {
		el.Add(fmt.Errorf("outposts: valid_around must not be negative"))
	}

	return el.Err()
}

// Enabled reports whether real outpost codes can be scanned.
func (c *OutpostConfig) Enabled() bool {
	return c.Secret != ""
}

// IntervalDuration returns the token window. Only valid after Validate.
func (c *OutpostConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.Interval)
	return d
}

func (c *DefaultsConfig) validate(cat *catalog.Catalog, gridSize int) error {
	el := errors.NewErrorList()

	if gridSize > 0 && len(c.Inventory) > gridSize {
		el.Add(fmt.Errorf("defaults: inventory has %d items but the grid holds %d", len(c.Inventory), gridSize))
	}
	for i, ref := range c.Inventory {
		if _, ok := cat.Lookup(ref); !ok {
			el.Add(fmt.Errorf("defaults: inventory %d: unknown item %q", i, ref))
		}
	}

	return el.Err()
}

func validateDuration(name, s string) error {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", name, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}
