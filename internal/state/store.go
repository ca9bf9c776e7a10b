package state

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// PlanRevision is one row of a task's append-only plan history.
type PlanRevision struct {
	Seq      int64
	PlanID   string
	Strategy models.Strategy
	Status   models.PlanStatus
	Plan     *models.OrchestrationPlan
	SavedAt  time.Time
}

// SavePlan appends a plan revision. Plans are never updated in place;
// re-saving after a status change or rebalance adds a new revision.
func (db *DB) SavePlan(plan *models.OrchestrationPlan) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	blob, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan %s: %w", plan.ID, err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO plan_history (plan_id, task_id, strategy, status, plan_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.TaskID, string(plan.Strategy), string(plan.Status), string(blob), time.Now())
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	return nil
}

// PlanHistory returns every revision saved for a task, oldest first.
func (db *DB) PlanHistory(taskID string) ([]*PlanRevision, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT seq, plan_id, strategy, status, plan_json, saved_at
		FROM plan_history WHERE task_id = ? ORDER BY seq`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query plan history for %s: %w", taskID, err)
	}
	defer rows.Close()

	var out []*PlanRevision
	for rows.Next() {
		var rev PlanRevision
		var strategy, status, blob string
		if err := rows.Scan(&rev.Seq, &rev.PlanID, &strategy, &status, &blob, &rev.SavedAt); err != nil {
			return nil, fmt.Errorf("scan plan revision: %w", err)
		}
		rev.Strategy = models.Strategy(strategy)
		rev.Status = models.PlanStatus(status)

		var plan models.OrchestrationPlan
		if err := json.Unmarshal([]byte(blob), &plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan %s: %w", rev.PlanID, err)
		}
		rev.Plan = &plan
		out = append(out, &rev)
	}
	return out, rows.Err()
}

// SaveProposal upserts a proposal's outcome row. Called once when the
// proposal is created and again when it reaches a terminal state.
func (db *DB) SaveProposal(p *models.ConsensusProposal) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	var finishedAt any
	if p.Status.Terminal() {
		finishedAt = time.Now()
	}

	_, err := db.conn.Exec(`
		INSERT INTO proposals (id, topic, status, required, participants, approvals, created_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			approvals = excluded.approvals,
			finished_at = excluded.finished_at`,
		p.ID, p.Topic, string(p.Status), p.RequiredConsensus, len(p.Participants),
		p.ApprovalScore(), p.CreatedAt, finishedAt)
	if err != nil {
		return fmt.Errorf("save proposal %s: %w", p.ID, err)
	}
	return nil
}

// ProposalRow is the persisted outcome of one consensus proposal.
type ProposalRow struct {
	ID           string
	Topic        string
	Status       models.ProposalStatus
	Required     float64
	Participants int
	Approvals    float64
	CreatedAt    time.Time
	FinishedAt   *time.Time
}

// Proposals returns persisted proposals, newest first.
func (db *DB) Proposals(limit int) ([]*ProposalRow, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, topic, status, required, participants, approvals, created_at, finished_at
		FROM proposals ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query proposals: %w", err)
	}
	defer rows.Close()

	var out []*ProposalRow
	for rows.Next() {
		var row ProposalRow
		var status string
		if err := rows.Scan(&row.ID, &row.Topic, &status, &row.Required,
			&row.Participants, &row.Approvals, &row.CreatedAt, &row.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan proposal: %w", err)
		}
		row.Status = models.ProposalStatus(status)
		out = append(out, &row)
	}
	return out, rows.Err()
}

// SaveConflict appends a resolved conflict record.
func (db *DB) SaveConflict(rec *models.ConflictRecord) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	satisfaction, err := json.Marshal(rec.Satisfaction)
	if err != nil {
		return fmt.Errorf("marshal satisfaction for conflict %s: %w", rec.ID, err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO conflicts (id, task_id, issue, outcome, resolution, parties, satisfaction, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.TaskID, rec.Issue, string(rec.Outcome), rec.Resolution,
		strings.Join(rec.Parties, ","), string(satisfaction), rec.ResolvedAt)
	if err != nil {
		return fmt.Errorf("save conflict %s: %w", rec.ID, err)
	}
	return nil
}

// Conflicts returns resolved conflicts for a task, oldest first.
func (db *DB) Conflicts(taskID string) ([]*models.ConflictRecord, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT id, task_id, issue, outcome, resolution, parties, satisfaction, resolved_at
		FROM conflicts WHERE task_id = ? ORDER BY resolved_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("query conflicts for %s: %w", taskID, err)
	}
	defer rows.Close()

	var out []*models.ConflictRecord
	for rows.Next() {
		var rec models.ConflictRecord
		var outcome, parties, satisfaction string
		if err := rows.Scan(&rec.ID, &rec.TaskID, &rec.Issue, &outcome, &rec.Resolution,
			&parties, &satisfaction, &rec.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		rec.Outcome = models.ResolutionOutcome(outcome)
		if parties != "" {
			rec.Parties = strings.Split(parties, ",")
		}
		if err := json.Unmarshal([]byte(satisfaction), &rec.Satisfaction); err != nil {
			return nil, fmt.Errorf("unmarshal satisfaction for conflict %s: %w", rec.ID, err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// SaveSnapshot appends a performance snapshot.
func (db *DB) SaveSnapshot(snap *models.PerformanceSnapshot) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		INSERT INTO snapshots (taken_at, throughput, latency_ms, quality, efficiency, error_rate)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Timestamp, snap.Throughput, snap.Latency.Milliseconds(),
		snap.QualityScore, snap.ResourceEfficiency, snap.ErrorRate)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// RecentSnapshots returns the latest n snapshots, newest first.
func (db *DB) RecentSnapshots(n int) ([]*models.PerformanceSnapshot, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.Query(`
		SELECT taken_at, throughput, latency_ms, quality, efficiency, error_rate
		FROM snapshots ORDER BY seq DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []*models.PerformanceSnapshot
	for rows.Next() {
		var snap models.PerformanceSnapshot
		var latencyMS int64
		if err := rows.Scan(&snap.Timestamp, &snap.Throughput, &latencyMS,
			&snap.QualityScore, &snap.ResourceEfficiency, &snap.ErrorRate); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.Latency = time.Duration(latencyMS) * time.Millisecond
		out = append(out, &snap)
	}
	return out, rows.Err()
}
