package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the process configuration. The show Configuration lives in its
// own file (see Show) so operators can edit and reload it independently.
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Telegram TelegramConfig `json:"telegram"`
	Console  ConsoleConfig  `json:"console"`
	Storage  *StorageConfig `json:"storage,omitempty"`
	World    WorldConfig    `json:"world"`
	Show     ShowFileConfig `json:"show"`
	Commands CommandsConfig `json:"commands"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards log lines at or above MinLevel to telegram.group_log.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type TelegramConfig struct {
	Enabled      bool    `json:"enabled"`
	Token        string  `json:"token"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	GroupLog     string  `json:"group_log"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

// ConsoleConfig enables the stdin operator console. Console input is treated
// as the server console and is always allowed to run admin commands.
type ConsoleConfig struct {
	Enabled bool `json:"enabled"`
}

// StorageConfig controls the operator audit log.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./fireshow.db", "busy_timeout": "5s" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// WorldConfig describes the simulated host world.
type WorldConfig struct {
	Seed    int64   `json:"seed"`
	MapSize float64 `json:"map_size"`
	// DayLength is the wall-clock length of one 24h in-game day.
	DayLength string  `json:"day_length"`
	StartHour float64 `json:"start_hour"`

	Monuments []MonumentConfig `json:"monuments,omitempty"`
	Players   []PlayerConfig   `json:"players,omitempty"`
}

type MonumentConfig struct {
	// Prefab is the host prefab path, e.g. "assets/bundled/prefabs/autospawn/monument/large/airfield_1.prefab".
	Prefab  string  `json:"prefab"`
	Display string  `json:"display,omitempty"`
	X       float64 `json:"x"`
	Z       float64 `json:"z"`
}

type PlayerConfig struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Z     float64 `json:"z"`
	Admin bool    `json:"admin,omitempty"`
}

// ShowFileConfig locates the show Configuration document.
type ShowFileConfig struct {
	Path  string `json:"path"`
	Watch bool   `json:"watch"`
}

// CommandsConfig limits how often show-launching commands may run.
// RatePerSec <= 0 disables the limiter.
type CommandsConfig struct {
	RatePerSec float64 `json:"rate_per_sec"`
	Burst      int     `json:"burst"`
}

const (
	DefaultMapSize   = 4000
	DefaultDayLength = 60 * time.Minute
	DefaultShowPath  = "fireshow.json"
)

// withDefaults fills zero values that have a sensible default.
func (c *Config) withDefaults() {
	if c.World.MapSize <= 0 {
		c.World.MapSize = DefaultMapSize
	}
	if strings.TrimSpace(c.Show.Path) == "" {
		c.Show.Path = DefaultShowPath
	}
	if c.Commands.Burst <= 0 && c.Commands.RatePerSec > 0 {
		c.Commands.Burst = 1
	}
}

// Validate reports the first invalid field. It does not mutate c.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}
	if c.Telegram.Enabled && strings.TrimSpace(c.Telegram.Token) == "" {
		return fmt.Errorf("%w: telegram.token is required when telegram.enabled", ErrInvalid)
	}
	if _, err := ParseDurationField("telegram.poll_timeout", c.Telegram.PollTimeout); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := ParseDurationField("world.day_length", c.World.DayLength); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.World.StartHour < 0 || c.World.StartHour >= 24 {
		return fmt.Errorf("%w: world.start_hour must be in [0,24)", ErrInvalid)
	}
	if c.World.MapSize < 0 {
		return fmt.Errorf("%w: world.map_size must be > 0", ErrInvalid)
	}
	for i, m := range c.World.Monuments {
		if strings.TrimSpace(m.Prefab) == "" {
			return fmt.Errorf("%w: world.monuments[%d].prefab is required", ErrInvalid, i)
		}
	}
	if c.Storage != nil {
		switch strings.ToLower(strings.TrimSpace(c.Storage.Driver)) {
		case "", "none", "file", "sqlite":
		default:
			return fmt.Errorf("%w: storage.driver %q (want file|sqlite)", ErrInvalid, c.Storage.Driver)
		}
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	if c.Commands.RatePerSec < 0 {
		return fmt.Errorf("%w: commands.rate_per_sec must be >= 0", ErrInvalid)
	}
	return nil
}
