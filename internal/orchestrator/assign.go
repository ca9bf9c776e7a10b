package orchestrator

import (
	"fmt"

	"github.com/ShayCichocki/hivemind/internal/directory"
	"github.com/ShayCichocki/hivemind/pkg/models"
)

// assignSpecialists maps every sub-unit of the task to exactly one
// specialist type using the directory ranking. A sub-unit with no
// ranked candidate fails the whole assignment; partial assignment is
// never returned.
func assignSpecialists(task *models.CompositeTask, dir *directory.Directory) (map[models.SpecialistType][]string, error) {
	assignments := make(map[models.SpecialistType][]string)

	for _, su := range task.SubUnits {
		candidates := dir.Rank(su)
		if len(candidates) == 0 {
			return nil, fmt.Errorf("sub-unit %s: no specialist holds competency %q", su.ID, su.Competency)
		}

		best := candidates[0].Type
		assignments[best] = append(assignments[best], su.ID)
	}

	return assignments, nil
}
