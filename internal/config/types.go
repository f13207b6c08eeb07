package config

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `json:"path" validate:"required"`
}

// SchedulerConfig tunes the occurrence advancer.
type SchedulerConfig struct {
	// MaxSkipSteps bounds how many consecutive skipped occurrences one
	// completion may step over.
	MaxSkipSteps int `json:"max_skip_steps" validate:"min=1,max=10000"`
}

// RemindersConfig controls the due-soon sweep run by `chorewheel serve`.
type RemindersConfig struct {
	Enabled bool `json:"enabled"`

	// Schedule is a cron expression (standard five fields or a descriptor
	// such as "@hourly"). When empty, IntervalMinutes is used.
	Schedule        string `json:"schedule,omitempty"`
	IntervalMinutes int    `json:"interval_minutes" validate:"min=1,max=1440"`
	LookaheadHours  int    `json:"lookahead_hours" validate:"min=1,max=168"`
	Concurrency     int    `json:"concurrency" validate:"min=1,max=64"`
}

// RetryConfig shapes the exponential backoff around notifier deliveries.
type RetryConfig struct {
	InitialIntervalMs int     `json:"initial_interval_ms" validate:"min=1"`
	MaxIntervalMs     int     `json:"max_interval_ms" validate:"gtefield=InitialIntervalMs"`
	MaxElapsedMs      int     `json:"max_elapsed_ms" validate:"min=0"`
	Multiplier        float64 `json:"multiplier" validate:"gte=1,lte=10"`
}

// Config is the top-level configuration.
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Reminders RemindersConfig `json:"reminders"`
	Retry     RetryConfig     `json:"retry"`
}
