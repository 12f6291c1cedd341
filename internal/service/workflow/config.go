package workflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunable thresholds of the lifecycle engine. Values are
// read once at startup; the engine never mutates them afterwards.
type Config struct {
	// SilenceTimeoutDays is how long a signed_and_sent plan may sit without
	// a response before the silence scan moves it to not_received.
	SilenceTimeoutDays int `yaml:"silence_timeout_days"`

	// DeadlineAlertDays is the window before the plan deadline in which the
	// deadline scan records an alert entry.
	DeadlineAlertDays int `yaml:"deadline_alert_days"`

	// PassingScore is the evaluation score at or above which no improvement
	// plan is required.
	PassingScore int `yaml:"passing_score"`

	// PlanDeadlineDays is the default response window granted to a supplier
	// when a plan is opened without an explicit deadline.
	PlanDeadlineDays int `yaml:"plan_deadline_days"`
}

func DefaultConfig() Config {
	return Config{
		SilenceTimeoutDays: 30,
		DeadlineAlertDays:  5,
		PassingScore:       80,
		PlanDeadlineDays:   30,
	}
}

// LoadConfig overlays an optional YAML file on top of the defaults. An empty
// path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read workflow config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode workflow config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.SilenceTimeoutDays <= 0 {
		return fmt.Errorf("silence_timeout_days must be positive, got %d", c.SilenceTimeoutDays)
	}
	if c.DeadlineAlertDays <= 0 {
		return fmt.Errorf("deadline_alert_days must be positive, got %d", c.DeadlineAlertDays)
	}
	if c.PassingScore <= 0 || c.PassingScore > 100 {
		return fmt.Errorf("passing_score must be between 1 and 100, got %d", c.PassingScore)
	}
	if c.PlanDeadlineDays <= 0 {
		return fmt.Errorf("plan_deadline_days must be positive, got %d", c.PlanDeadlineDays)
	}
	return nil
}
