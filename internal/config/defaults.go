package config

import (
	"os"
	"path/filepath"
)

// DefaultConfig returns the built-in configuration. The database lives under
// ~/.chorewheel when the home directory is known, else in .chorewheel.
func DefaultConfig() *Config {
	dbPath := filepath.Join(".chorewheel", "chorewheel.db")
	if home, err := os.UserHomeDir(); err == nil {
		dbPath = filepath.Join(home, ".chorewheel", "chorewheel.db")
	}

	return &Config{
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Scheduler: SchedulerConfig{
			MaxSkipSteps: 365,
		},
		Reminders: RemindersConfig{
			Enabled:         true,
			IntervalMinutes: 15,
			LookaheadHours:  24,
			Concurrency:     4,
		},
		Retry: RetryConfig{
			InitialIntervalMs: 500,
			MaxIntervalMs:     10_000,
			MaxElapsedMs:      30_000,
			Multiplier:        2,
		},
	}
}
