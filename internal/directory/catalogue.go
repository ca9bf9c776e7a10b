package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/hivemind/pkg/models"
)

// catalogueFile is the YAML shape of the specialist catalogue.
type catalogueFile struct {
	Specialists []*models.SpecialistProfile `yaml:"specialists"`
}

// LoadCatalogue reads a specialist catalogue YAML file and builds a
// Directory from it.
func LoadCatalogue(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}

	profiles, err := parseCatalogue(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalogue %s: %w", path, err)
	}

	return New(profiles)
}

// parseCatalogue decodes catalogue YAML and applies defaults.
func parseCatalogue(data []byte) ([]*models.SpecialistProfile, error) {
	var file catalogueFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Specialists) == 0 {
		return nil, fmt.Errorf("catalogue lists no specialists")
	}

	for _, p := range file.Specialists {
		if p.Competencies == nil {
			p.Competencies = make(map[models.SpecialistType]float64)
		}
		// Fresh profiles start fully available with a neutral history.
		if p.Availability == 0 {
			p.Availability = 1.0
		}
		if p.SuccessRate == 0 {
			p.SuccessRate = 0.9
		}
	}

	return file.Specialists, nil
}

// DefaultCatalogue returns the built-in specialist catalogue used when
// no YAML file is available. One profile per specialist type, with
// adjacent-competency overlaps mirroring how the specialists relate.
func DefaultCatalogue() *Directory {
	overlaps := map[models.SpecialistType]map[models.SpecialistType]float64{
		models.SpecialistCode:          {models.SpecialistTesting: 0.5, models.SpecialistArchitecture: 0.4, models.SpecialistPerformance: 0.3},
		models.SpecialistAnalysis:      {models.SpecialistPerformance: 0.4, models.SpecialistSecurity: 0.3},
		models.SpecialistArchitecture:  {models.SpecialistCode: 0.5, models.SpecialistIntegration: 0.4},
		models.SpecialistTesting:       {models.SpecialistCode: 0.5, models.SpecialistSecurity: 0.3},
		models.SpecialistDocumentation: {models.SpecialistCode: 0.3, models.SpecialistAnalysis: 0.2},
		models.SpecialistSecurity:      {models.SpecialistCode: 0.4, models.SpecialistTesting: 0.4},
		models.SpecialistPerformance:   {models.SpecialistCode: 0.4, models.SpecialistAnalysis: 0.4},
		models.SpecialistUI:            {models.SpecialistCode: 0.4, models.SpecialistDocumentation: 0.2},
		models.SpecialistIntegration:   {models.SpecialistCode: 0.4, models.SpecialistArchitecture: 0.4},
	}

	var profiles []*models.SpecialistProfile
	for _, st := range models.AllSpecialistTypes() {
		comp := map[models.SpecialistType]float64{st: 1.0}
		for other, strength := range overlaps[st] {
			comp[other] = strength
		}
		profiles = append(profiles, &models.SpecialistProfile{
			Type:           st,
			Competencies:   comp,
			MaxConcurrency: 4,
			Availability:   1.0,
			SuccessRate:    0.9,
		})
	}

	d, err := New(profiles)
	if err != nil {
		// The built-in catalogue is statically valid.
		panic(err)
	}
	return d
}
