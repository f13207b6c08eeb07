package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

// cronParser accepts standard five-field expressions and descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Validate checks field ranges and the reminder schedule expression.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed '%s' (value: %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if c.Reminders.Schedule != "" {
		if _, err := cronParser.Parse(c.Reminders.Schedule); err != nil {
			return fmt.Errorf("%w: reminders.schedule %q: %v", ErrInvalidConfig, c.Reminders.Schedule, err)
		}
	}
	return nil
}

// ReminderSpec returns the cron spec the reminder sweep runs on.
func (r RemindersConfig) ReminderSpec() string {
	if r.Schedule != "" {
		return r.Schedule
	}
	return fmt.Sprintf("@every %dm", r.IntervalMinutes)
}

// Lookahead returns the reminder window as a duration.
func (r RemindersConfig) Lookahead() time.Duration {
	return time.Duration(r.LookaheadHours) * time.Hour
}
