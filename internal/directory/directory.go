// Package directory maintains the static catalogue of specialist types
// and their declared competencies, and ranks candidates for sub-units.
package directory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// successRateAlpha is the smoothing factor for the historical success
// rate moving average.
const successRateAlpha = 0.1

// Directory is the catalogue of specialist profiles. Rankings are
// deterministic: identical profiles and load produce identical output.
type Directory struct {
	// profiles maps specialist type to its profile.
	profiles map[models.SpecialistType]*models.SpecialistProfile
	// mu protects profiles and the mutable load/rate fields inside them.
	mu sync.RWMutex
}

// New creates a Directory from the given profiles.
func New(profiles []*models.SpecialistProfile) (*Directory, error) {
	d := &Directory{
		profiles: make(map[models.SpecialistType]*models.SpecialistProfile),
	}
	for _, p := range profiles {
		if !p.Type.Valid() {
			return nil, fmt.Errorf("unknown specialist type %q", p.Type)
		}
		if p.MaxConcurrency <= 0 {
			return nil, fmt.Errorf("specialist %s: max_concurrency must be positive", p.Type)
		}
		d.profiles[p.Type] = p
	}
	return d, nil
}

// Rank returns candidate specialist types for a sub-unit, best first.
// Ordering: competency match descending, availability descending,
// historical success rate descending, current load ascending; ties
// break by lowest specialist-type identifier. Types with zero
// competency match are excluded.
func (d *Directory) Rank(su *models.SubUnit) []models.Candidate {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var candidates []models.Candidate
	for _, st := range models.AllSpecialistTypes() {
		p, ok := d.profiles[st]
		if !ok {
			continue
		}
		match := p.Competencies[su.Competency]
		if st == su.Competency {
			// A specialist always fully matches its own competency.
			match = 1.0
		}
		if match <= 0 {
			continue
		}
		candidates = append(candidates, models.Candidate{
			Type:         st,
			Match:        match,
			Availability: p.Availability,
			SuccessRate:  p.SuccessRate,
			Load:         p.CurrentLoad,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Match != b.Match {
			return a.Match > b.Match
		}
		if a.Availability != b.Availability {
			return a.Availability > b.Availability
		}
		if a.SuccessRate != b.SuccessRate {
			return a.SuccessRate > b.SuccessRate
		}
		if a.Load != b.Load {
			return a.Load < b.Load
		}
		return a.Type < b.Type
	})

	return candidates
}

// Profile returns the profile for a specialist type, or nil.
func (d *Directory) Profile(st models.SpecialistType) *models.SpecialistProfile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.profiles[st]
}

// Types returns all catalogued specialist types in identifier order.
func (d *Directory) Types() []models.SpecialistType {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var types []models.SpecialistType
	for _, st := range models.AllSpecialistTypes() {
		if _, ok := d.profiles[st]; ok {
			types = append(types, st)
		}
	}
	return types
}

// AddLoad adjusts the current load of a specialist type by delta and
// recomputes its availability. Load never goes below zero.
func (d *Directory) AddLoad(st models.SpecialistType, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[st]
	if !ok {
		return
	}
	p.CurrentLoad += delta
	if p.CurrentLoad < 0 {
		p.CurrentLoad = 0
	}
	if p.MaxConcurrency > 0 {
		free := float64(p.MaxConcurrency-p.CurrentLoad) / float64(p.MaxConcurrency)
		if free < 0 {
			free = 0
		}
		p.Availability = free
	}
}

// RecordOutcome folds one execution outcome into the specialist's
// historical success rate using an exponential moving average.
func (d *Directory) RecordOutcome(st models.SpecialistType, success bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.profiles[st]
	if !ok {
		return
	}
	outcome := 0.0
	if success {
		outcome = 1.0
	}
	p.SuccessRate = p.SuccessRate*(1-successRateAlpha) + outcome*successRateAlpha
}

// Utilization returns load over max concurrency per specialist type.
func (d *Directory) Utilization() map[models.SpecialistType]float64 {
	d.mu.RLock()
	defer d.mu.RUnlock()

	util := make(map[models.SpecialistType]float64, len(d.profiles))
	for st, p := range d.profiles {
		if p.MaxConcurrency > 0 {
			util[st] = float64(p.CurrentLoad) / float64(p.MaxConcurrency)
		}
	}
	return util
}

// replace swaps the whole catalogue. Used by the watcher on reload.
func (d *Directory) replace(profiles map[models.SpecialistType]*models.SpecialistProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles = profiles
}
