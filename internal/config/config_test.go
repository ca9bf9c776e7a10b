package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.Capacity.TotalSlots != 16 {
		t.Errorf("total slots = %d, want 16", cfg.Capacity.TotalSlots)
	}
	if cfg.Consensus.DefaultRequired != 0.8 {
		t.Errorf("default required = %.2f, want 0.8", cfg.Consensus.DefaultRequired)
	}
	if cfg.Consensus.VotingDeadline != 5*time.Minute {
		t.Errorf("voting deadline = %s, want 5m", cfg.Consensus.VotingDeadline)
	}
	if cfg.Quality.MaxReworkCycles != 3 {
		t.Errorf("max rework cycles = %d, want 3", cfg.Quality.MaxReworkCycles)
	}
	if cfg.Conflict.ConfidenceEpsilon != 0.25 {
		t.Errorf("confidence epsilon = %.2f, want 0.25", cfg.Conflict.ConfidenceEpsilon)
	}
	if !cfg.Conflict.OrchestratorAuthority {
		t.Error("orchestrator authority must default on")
	}
	if cfg.Monitor.TargetUtilization != 0.75 || cfg.Monitor.Hysteresis != 0.10 {
		t.Errorf("utilization band = %.2f±%.2f, want 0.75±0.10",
			cfg.Monitor.TargetUtilization, cfg.Monitor.Hysteresis)
	}
	if cfg.Monitor.ConsecutiveSnapshots != 3 {
		t.Errorf("consecutive snapshots = %d, want 3", cfg.Monitor.ConsecutiveSnapshots)
	}
	if cfg.Monitor.MaxRebalanceFraction != 0.30 {
		t.Errorf("rebalance fraction = %.2f, want 0.30", cfg.Monitor.MaxRebalanceFraction)
	}
	if cfg.Specialists.ExecutionTimeout != 2*time.Minute || cfg.Specialists.MaxRetries != 2 {
		t.Errorf("specialist policy = %s/%d retries, want 2m/2",
			cfg.Specialists.ExecutionTimeout, cfg.Specialists.MaxRetries)
	}
}

func TestLoadFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `capacity:
  total_slots: 32
consensus:
  default_required: 0.6
  voting_deadline: 90s
quality:
  max_rework_cycles: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Capacity.TotalSlots != 32 {
		t.Errorf("total slots = %d, want 32", cfg.Capacity.TotalSlots)
	}
	if cfg.Consensus.DefaultRequired != 0.6 {
		t.Errorf("default required = %.2f, want 0.6", cfg.Consensus.DefaultRequired)
	}
	if cfg.Consensus.VotingDeadline != 90*time.Second {
		t.Errorf("voting deadline = %s, want 90s", cfg.Consensus.VotingDeadline)
	}
	if cfg.Quality.MaxReworkCycles != 5 {
		t.Errorf("max rework cycles = %d, want 5", cfg.Quality.MaxReworkCycles)
	}

	// Unset keys keep their defaults.
	if cfg.Monitor.WindowSize != 60 {
		t.Errorf("window size = %d, want default 60", cfg.Monitor.WindowSize)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
