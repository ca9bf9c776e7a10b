package models

// SpecialistType identifies a specialist competency. The set is closed:
// dispatch is by enum, never by duck typing.
type SpecialistType string

const (
	// SpecialistCode generates and modifies code.
	SpecialistCode SpecialistType = "code"
	// SpecialistAnalysis performs data analysis and insight extraction.
	SpecialistAnalysis SpecialistType = "analysis"
	// SpecialistArchitecture designs system structure.
	SpecialistArchitecture SpecialistType = "architecture"
	// SpecialistTesting writes and runs tests.
	SpecialistTesting SpecialistType = "testing"
	// SpecialistDocumentation writes documentation.
	SpecialistDocumentation SpecialistType = "documentation"
	// SpecialistSecurity reviews for vulnerabilities.
	SpecialistSecurity SpecialistType = "security"
	// SpecialistPerformance optimizes for speed and scalability.
	SpecialistPerformance SpecialistType = "performance"
	// SpecialistUI designs user interfaces.
	SpecialistUI SpecialistType = "ui"
	// SpecialistIntegration wires APIs and external systems.
	SpecialistIntegration SpecialistType = "integration"
)

// AllSpecialistTypes returns the closed set of specialist types in
// identifier order. Ranking ties are broken by this order.
func AllSpecialistTypes() []SpecialistType {
	return []SpecialistType{
		SpecialistAnalysis,
		SpecialistArchitecture,
		SpecialistCode,
		SpecialistDocumentation,
		SpecialistIntegration,
		SpecialistPerformance,
		SpecialistSecurity,
		SpecialistTesting,
		SpecialistUI,
	}
}

// Valid returns true if the specialist type is a known value.
func (s SpecialistType) Valid() bool {
	switch s {
	case SpecialistCode, SpecialistAnalysis, SpecialistArchitecture,
		SpecialistTesting, SpecialistDocumentation, SpecialistSecurity,
		SpecialistPerformance, SpecialistUI, SpecialistIntegration:
		return true
	default:
		return false
	}
}

// SpecialistProfile describes the declared competencies and observed
// runtime characteristics of one specialist type.
type SpecialistProfile struct {
	// Type is the specialist type this profile describes.
	Type SpecialistType `json:"type" yaml:"type"`
	// Competencies maps competency tags to a declared strength in [0,1].
	Competencies map[SpecialistType]float64 `json:"competencies" yaml:"competencies"`
	// MaxConcurrency is the maximum number of sub-units this specialist
	// type can execute at once.
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`
	// Availability is the fraction of capacity currently free, in [0,1].
	Availability float64 `json:"availability" yaml:"availability"`
	// SuccessRate is the historical success rate, in [0,1].
	SuccessRate float64 `json:"success_rate" yaml:"success_rate"`
	// CurrentLoad is the number of sub-units currently assigned.
	CurrentLoad int `json:"current_load" yaml:"-"`
}

// Candidate is a ranked assignment candidate produced by the directory.
type Candidate struct {
	// Type is the candidate specialist type.
	Type SpecialistType `json:"type"`
	// Match is the competency match score in [0,1].
	Match float64 `json:"match"`
	// Availability is the candidate's availability at ranking time.
	Availability float64 `json:"availability"`
	// SuccessRate is the candidate's historical success rate.
	SuccessRate float64 `json:"success_rate"`
	// Load is the candidate's current load at ranking time.
	Load int `json:"load"`
}
