package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/corvusdb/corvus/internal/log"
)

// PlannerConfig carries the planning-layer settings.
type PlannerConfig struct {
	// JoinReorderStrategy selects the cardinality model for join ordering:
	// "cost_based" (default) or "legacy".
	JoinReorderStrategy string `json:"join_reorder_strategy"`

	// ExplainLevel is the default explain detail: "brief" or "verbose".
	ExplainLevel string `json:"explain_level"`
}

// Config represents the server configuration consumed by this repo.
type Config struct {
	Planner PlannerConfig `json:"planner"`
	Log     log.Config    `json:"log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Planner: PlannerConfig{
			JoinReorderStrategy: "cost_based",
			ExplainLevel:        "brief",
		},
		Log: log.DefaultConfig(),
	}
}

// LoadFromFile loads configuration from a JSON file, layered over defaults.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Planner.JoinReorderStrategy {
	case "cost_based", "legacy":
	default:
		return fmt.Errorf("invalid join_reorder_strategy %q", c.Planner.JoinReorderStrategy)
	}
	switch c.Planner.ExplainLevel {
	case "brief", "verbose":
	default:
		return fmt.Errorf("invalid explain_level %q", c.Planner.ExplainLevel)
	}
	return nil
}
