package models

// SpecialistShare is the capacity budget allocated to one specialist
// type within a plan.
type SpecialistShare struct {
	// Type is the specialist type the share belongs to.
	Type SpecialistType `json:"type"`
	// Guaranteed is the number of execution slots reserved for the type.
	Guaranteed int `json:"guaranteed"`
	// Cap is the maximum slots the type may use, including burst.
	Cap int `json:"cap"`
}

// ResourceAllocation is the per-plan capacity budget. Invariant: the
// sum of guaranteed minimums never exceeds TotalCapacity.
type ResourceAllocation struct {
	// PlanID is the plan the allocation belongs to.
	PlanID string `json:"plan_id"`
	// TotalCapacity is the total execution slots available.
	TotalCapacity int `json:"total_capacity"`
	// Shares maps specialist type to its budget.
	Shares map[SpecialistType]SpecialistShare `json:"shares"`
	// BurstPool is shared slack any specialist may borrow from.
	BurstPool int `json:"burst_pool"`
	// ReservedPool is slack held back for failover; never borrowed.
	ReservedPool int `json:"reserved_pool"`
}

// GuaranteedTotal returns the sum of guaranteed minimums across shares.
func (a *ResourceAllocation) GuaranteedTotal() int {
	total := 0
	for _, s := range a.Shares {
		total += s.Guaranteed
	}
	return total
}
