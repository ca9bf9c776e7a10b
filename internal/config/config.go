// Package config handles configuration loading for hivemind.
// It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for hivemind.
type Config struct {
	Anthropic   AnthropicConfig   `mapstructure:"anthropic"`
	Capacity    CapacityConfig    `mapstructure:"capacity"`
	Consensus   ConsensusConfig   `mapstructure:"consensus"`
	Quality     QualityConfig     `mapstructure:"quality"`
	Conflict    ConflictConfig    `mapstructure:"conflict"`
	Monitor     MonitorConfig     `mapstructure:"monitor"`
	Specialists SpecialistsConfig `mapstructure:"specialists"`
}

// AnthropicConfig holds Anthropic API settings for API-backed specialists.
type AnthropicConfig struct {
	APIKey        string `mapstructure:"api_key"`
	Model         string `mapstructure:"model"`
	UseAWSBedrock bool   `mapstructure:"use_aws_bedrock"`
	AWSRegion     string `mapstructure:"aws_region"`
	AWSProfile    string `mapstructure:"aws_profile"`
}

// CapacityConfig holds resource allocation settings.
type CapacityConfig struct {
	// TotalSlots is the total number of concurrent execution slots.
	TotalSlots int `mapstructure:"total_slots"`
	// ReservedFraction is the share of slack held back for failover.
	ReservedFraction float64 `mapstructure:"reserved_fraction"`
}

// ConsensusConfig holds quorum voting settings.
type ConsensusConfig struct {
	// DefaultRequired is the default required-consensus fraction.
	DefaultRequired float64 `mapstructure:"default_required"`
	// VotingDeadline is the hard deadline for a voting round.
	VotingDeadline time.Duration `mapstructure:"voting_deadline"`
}

// QualityConfig holds quality gate settings.
type QualityConfig struct {
	// MaxReworkCycles caps rework cycles per failed mandatory gate.
	MaxReworkCycles int `mapstructure:"max_rework_cycles"`
	// DefaultThreshold is the passing score used by default gates.
	DefaultThreshold float64 `mapstructure:"default_threshold"`
}

// ConflictConfig holds conflict resolution settings.
type ConflictConfig struct {
	// ConfidenceEpsilon is the maximum confidence spread for a clear
	// majority to settle a conflict without escalation.
	ConfidenceEpsilon float64 `mapstructure:"confidence_epsilon"`
	// OrchestratorAuthority enables queen decisions when no majority
	// emerges.
	OrchestratorAuthority bool `mapstructure:"orchestrator_authority"`
}

// MonitorConfig holds performance monitoring settings.
type MonitorConfig struct {
	// WindowSize is the rolling snapshot window length.
	WindowSize int `mapstructure:"window_size"`
	// TargetUtilization is the per-specialist utilization target.
	TargetUtilization float64 `mapstructure:"target_utilization"`
	// Hysteresis is the dead band around the target.
	Hysteresis float64 `mapstructure:"hysteresis"`
	// ConsecutiveSnapshots is how many consecutive out-of-band
	// snapshots flag a specialist as imbalanced.
	ConsecutiveSnapshots int `mapstructure:"consecutive_snapshots"`
	// MaxRebalanceFraction bounds the share of pending sub-units moved
	// in one rebalance pass.
	MaxRebalanceFraction float64 `mapstructure:"max_rebalance_fraction"`
}

// SpecialistsConfig holds specialist execution settings.
type SpecialistsConfig struct {
	// CataloguePath is the specialist catalogue YAML file.
	CataloguePath string `mapstructure:"catalogue_path"`
	// ExecutionTimeout bounds a single specialist invocation.
	ExecutionTimeout time.Duration `mapstructure:"execution_timeout"`
	// MaxRetries is how many times a timed-out or failed invocation is
	// retried before the sub-unit is marked failed.
	MaxRetries int `mapstructure:"max_retries"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables.
// Precedence (highest to lowest):
//  1. Environment variables (ANTHROPIC_API_KEY)
//  2. Project config (.hivemind.yaml in current directory or parent)
//  3. User config (~/.config/hivemind/config.yaml)
//  4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over user config
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// setDefaults configures default values. The numeric constants here
// are the documented defaults for all tunables: utilization target
// 0.75 with 0.10 hysteresis over 3 consecutive snapshots, 3 rework
// cycles, 0.25 confidence epsilon, 30% rebalance cap, 2m specialist
// timeout with 2 retries, and a 5m consensus deadline.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("capacity.total_slots", 16)
	v.SetDefault("capacity.reserved_fraction", 0.5)

	v.SetDefault("consensus.default_required", 0.8)
	v.SetDefault("consensus.voting_deadline", "5m")

	v.SetDefault("quality.max_rework_cycles", 3)
	v.SetDefault("quality.default_threshold", 0.7)

	v.SetDefault("conflict.confidence_epsilon", 0.25)
	v.SetDefault("conflict.orchestrator_authority", true)

	v.SetDefault("monitor.window_size", 60)
	v.SetDefault("monitor.target_utilization", 0.75)
	v.SetDefault("monitor.hysteresis", 0.10)
	v.SetDefault("monitor.consecutive_snapshots", 3)
	v.SetDefault("monitor.max_rebalance_fraction", 0.30)

	v.SetDefault("specialists.catalogue_path", "configs/specialists.yaml")
	v.SetDefault("specialists.execution_timeout", "2m")
	v.SetDefault("specialists.max_retries", 2)
}

// getUserConfigDir returns the XDG config directory for hivemind.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hivemind")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hivemind")
	}
	return filepath.Join(home, ".config", "hivemind")
}

// findProjectConfig searches for .hivemind.yaml in the current
// directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".hivemind.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Capacity: CapacityConfig{
			TotalSlots:       16,
			ReservedFraction: 0.5,
		},
		Consensus: ConsensusConfig{
			DefaultRequired: 0.8,
			VotingDeadline:  5 * time.Minute,
		},
		Quality: QualityConfig{
			MaxReworkCycles:  3,
			DefaultThreshold: 0.7,
		},
		Conflict: ConflictConfig{
			ConfidenceEpsilon:     0.25,
			OrchestratorAuthority: true,
		},
		Monitor: MonitorConfig{
			WindowSize:           60,
			TargetUtilization:    0.75,
			Hysteresis:           0.10,
			ConsecutiveSnapshots: 3,
			MaxRebalanceFraction: 0.30,
		},
		Specialists: SpecialistsConfig{
			CataloguePath:    "configs/specialists.yaml",
			ExecutionTimeout: 2 * time.Minute,
			MaxRetries:       2,
		},
	}
}
