package bot

import (
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/decred/slog"
)

const (
	defaultInterval    = time.Second
	defaultMaxParallel = 8
	defaultMaxMoves    = 10
)

// Config holds the driver configuration.
type Config struct {
	// Interval between passes over all tables.
	Interval time.Duration

	// TurnTimeout is how long a human seat may hold the turn without
	// making progress before the driver stands for it. Zero disables the
	// watchdog.
	TurnTimeout time.Duration

	// MaxParallel bounds how many tables are driven at once.
	MaxParallel int

	// MaxMovesPerTick bounds the bot moves made on one table per pass.
	MaxMovesPerTick int

	Clock quartz.Clock
	Log   slog.Logger
}

func (cfg *Config) setDefaults() error {
	if cfg.Interval < 0 || cfg.TurnTimeout < 0 {
		return fmt.Errorf("interval and turn timeout must not be negative")
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = defaultMaxParallel
	}
	if cfg.MaxMovesPerTick <= 0 {
		cfg.MaxMovesPerTick = defaultMaxMoves
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Log == nil {
		cfg.Log = slog.Disabled
	}
	return nil
}
