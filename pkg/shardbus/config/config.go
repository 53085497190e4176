// Package config loads engine settings from YAML or JSON files.
package config

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the file-loadable engine settings.
type Config struct {
	// ShardCount is the number of shard queues and workers.
	ShardCount int `yaml:"shard_count" json:"shard_count"`

	// TimerInterval is the period between synthetic timer events.
	TimerInterval Duration `yaml:"timer_interval" json:"timer_interval"`

	// PollInterval bounds idle worker waits between stop checks.
	PollInterval Duration `yaml:"poll_interval" json:"poll_interval"`

	// DeadLetterPath is the SQLite file for failed dispatches.
	// Empty disables the dead letter store.
	DeadLetterPath string `yaml:"dead_letter_path" json:"dead_letter_path"`

	// FaultWindow is the sliding window for repeated-fault tracking.
	FaultWindow Duration `yaml:"fault_window" json:"fault_window"`

	// FaultThreshold is the faults-per-window count before a handler
	// is flagged. Zero disables fault tracking.
	FaultThreshold int `yaml:"fault_threshold" json:"fault_threshold"`
}

// Default returns the engine defaults.
func Default() Config {
	return Config{
		ShardCount:     5,
		TimerInterval:  Duration(1 * time.Second),
		PollInterval:   Duration(1 * time.Second),
		FaultWindow:    Duration(1 * time.Hour),
		FaultThreshold: 3,
	}
}

// Validate checks field ranges. Call after defaults are applied.
func (c Config) Validate() error {
	if c.ShardCount < 1 {
		return fmt.Errorf("shard_count must be at least 1, got %d", c.ShardCount)
	}
	if c.TimerInterval <= 0 {
		return fmt.Errorf("timer_interval must be positive, got %s", c.TimerInterval)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.FaultWindow < 0 {
		return fmt.Errorf("fault_window must not be negative, got %s", c.FaultWindow)
	}
	if c.FaultThreshold < 0 {
		return fmt.Errorf("fault_threshold must not be negative, got %d", c.FaultThreshold)
	}
	return nil
}

// Duration is a time.Duration that unmarshals from Go duration strings
// ("500ms", "2s") or bare numbers interpreted as seconds.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer.
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalYAML implements yaml.Unmarshaler.
// Numbers must be tried before strings: yaml decodes any scalar into a
// string without complaint, so the string branch would swallow them.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds float64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(seconds * float64(time.Second))
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds")
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("parse duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return fmt.Errorf("duration must be a string or a number of seconds")
	}
	*d = Duration(seconds * float64(time.Second))
	return nil
}
