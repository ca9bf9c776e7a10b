package models

import "time"

// PerformanceSnapshot is one sample of aggregate system performance.
// Snapshots live in a bounded rolling window.
type PerformanceSnapshot struct {
	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
	// Throughput is sub-units completed per minute.
	Throughput float64 `json:"throughput"`
	// Latency is the mean sub-unit execution latency.
	Latency time.Duration `json:"latency"`
	// QualityScore is the mean quality gate score in [0,1].
	QualityScore float64 `json:"quality_score"`
	// ResourceEfficiency is used slots over allocated slots, in [0,1].
	ResourceEfficiency float64 `json:"resource_efficiency"`
	// Utilization maps specialist type to load over capacity, in [0,1].
	Utilization map[SpecialistType]float64 `json:"utilization"`
	// ErrorRate is failed executions over total executions, in [0,1].
	ErrorRate float64 `json:"error_rate"`
}

// OptimizationResult is one recommended (and possibly applied)
// performance optimization.
type OptimizationResult struct {
	// Target names what was optimized (a specialist type or strategy).
	Target string `json:"target"`
	// Action describes the optimization taken or recommended.
	Action string `json:"action"`
	// Reason explains the signal that triggered the optimization.
	Reason string `json:"reason"`
	// Applied is true when the orchestrator has already acted on it.
	Applied bool `json:"applied"`
}

// StrategyStats tracks observed outcomes for one strategy.
type StrategyStats struct {
	// Chosen is how many plans selected the strategy.
	Chosen int `json:"chosen"`
	// Succeeded is how many of those plans completed.
	Succeeded int `json:"succeeded"`
	// Failed is how many of those plans failed.
	Failed int `json:"failed"`
}

// SuccessRate returns succeeded over finished plans, or 1 when no plan
// has finished yet.
func (s StrategyStats) SuccessRate() float64 {
	finished := s.Succeeded + s.Failed
	if finished == 0 {
		return 1
	}
	return float64(s.Succeeded) / float64(finished)
}

// SystemState is the aggregate view of the running system: active
// plans, assignments, strategy outcomes and the latest snapshot window.
// A single process-wide instance, mutated only by the orchestrator and
// the performance monitor.
type SystemState struct {
	// ActivePlans maps task id to its active plan.
	ActivePlans map[string]*OrchestrationPlan `json:"active_plans"`
	// StrategyStats maps strategy to observed outcomes.
	StrategyStats map[Strategy]StrategyStats `json:"strategy_stats"`
	// Window is the rolling performance snapshot window, oldest first.
	Window []PerformanceSnapshot `json:"window"`
	// UpdatedAt is when the state was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}
