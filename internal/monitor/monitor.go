// Package monitor tracks system throughput and utilization and flags
// sustained load imbalance across specialist types.
package monitor

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// Imbalance names specialist types running outside the target
// utilization band over the configured number of consecutive
// snapshots. A transient spike never qualifies.
type Imbalance struct {
	// Overloaded are types above target plus hysteresis.
	Overloaded []models.SpecialistType
	// Underloaded are types below target minus hysteresis.
	Underloaded []models.SpecialistType
}

// Detected reports whether any type is out of band.
func (im *Imbalance) Detected() bool {
	return len(im.Overloaded) > 0 || len(im.Underloaded) > 0
}

// Monitor keeps a bounded window of performance snapshots.
type Monitor struct {
	// window is the maximum number of snapshots retained.
	window int
	// target is the utilization midpoint.
	target float64
	// hysteresis is the half-width of the acceptable band.
	hysteresis float64
	// consecutive is how many snapshots in a row a type must be out of
	// band before it is flagged.
	consecutive int

	snapshots []*models.PerformanceSnapshot
	mu        sync.RWMutex
}

// New creates a Monitor. window bounds retained snapshots; consecutive
// snapshots outside target +/- hysteresis trigger an imbalance flag.
func New(window, consecutive int, target, hysteresis float64) *Monitor {
	if window < 1 {
		window = 1
	}
	if consecutive < 1 {
		consecutive = 1
	}
	return &Monitor{
		window:      window,
		target:      target,
		hysteresis:  hysteresis,
		consecutive: consecutive,
	}
}

// Record appends a snapshot, evicting the oldest when the window is
// full.
func (m *Monitor) Record(snap *models.PerformanceSnapshot) {
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.snapshots = append(m.snapshots, snap)
	if len(m.snapshots) > m.window {
		m.snapshots = m.snapshots[len(m.snapshots)-m.window:]
	}
}

// Snapshots returns the retained window, oldest first.
func (m *Monitor) Snapshots() []*models.PerformanceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.PerformanceSnapshot, len(m.snapshots))
	copy(out, m.snapshots)
	return out
}

// Latest returns the most recent snapshot, or nil when none recorded.
func (m *Monitor) Latest() *models.PerformanceSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.snapshots) == 0 {
		return nil
	}
	return m.snapshots[len(m.snapshots)-1]
}

// IdentifyImbalance flags specialist types out of the utilization band
// in every one of the last N snapshots. With fewer than N snapshots
// recorded, nothing is flagged.
func (m *Monitor) IdentifyImbalance() *Imbalance {
	m.mu.RLock()
	defer m.mu.RUnlock()

	im := &Imbalance{}
	if len(m.snapshots) < m.consecutive {
		return im
	}

	recent := m.snapshots[len(m.snapshots)-m.consecutive:]
	high := m.target + m.hysteresis
	low := m.target - m.hysteresis

	for _, st := range typesSeen(recent) {
		over, under := true, true
		for _, snap := range recent {
			u, ok := snap.Utilization[st]
			if !ok {
				over, under = false, false
				break
			}
			if u <= high {
				over = false
			}
			if u >= low {
				under = false
			}
		}
		if over {
			im.Overloaded = append(im.Overloaded, st)
		}
		if under {
			im.Underloaded = append(im.Underloaded, st)
		}
	}

	if im.Detected() {
		log.Printf("[monitor] imbalance over %d snapshots: overloaded=%v underloaded=%v",
			m.consecutive, im.Overloaded, im.Underloaded)
	}
	return im
}

// typesSeen collects every specialist type present in the snapshots,
// sorted for deterministic output.
func typesSeen(snaps []*models.PerformanceSnapshot) []models.SpecialistType {
	seen := make(map[models.SpecialistType]bool)
	for _, snap := range snaps {
		for st := range snap.Utilization {
			seen[st] = true
		}
	}

	out := make([]models.SpecialistType, 0, len(seen))
	for st := range seen {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
