package optimizer

import (
	"fmt"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// IndexRange is the half-open index interval [Start, End).
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (r IndexRange) Len() int { return r.End - r.Start }

// Inputs is everything the optimizer needs for one run. Per-staff slices are
// ordered by identity index; day-one staff come first.
type Inputs struct {
	// FutureDemand holds headcounts from the week being scheduled to the end of the semester.
	FutureDemand []grid.Grid `json:"future_demand"`
	// PastAssignments[k][c] is day-one staff c's assignment k+1 weeks ago.
	PastAssignments [][]grid.Grid `json:"past_assignments"`

	Availability        []grid.Grid `json:"availability"`
	MaxContiguous       []int       `json:"max_contiguous"`
	HoursRemaining      []int       `json:"hours_remaining"`
	WeeklyTarget        []int       `json:"weekly_target"`
	PreferredContiguous []int       `json:"preferred_contiguous"`

	// ChangedWeight is the availability difference score per day-one staff member.
	ChangedWeight []float64 `json:"changed_weight"`

	// NonCohort is the index range of staff who joined after the first week.
	// It must end at the staff count.
	NonCohort IndexRange `json:"non_cohort"`
}

func (in *Inputs) StaffCount() int { return len(in.Availability) }

// CohortSize is the number of day-one staff.
func (in *Inputs) CohortSize() int { return in.NonCohort.Start }

func (in *Inputs) Validate() error {
	s := in.StaffCount()
	if len(in.FutureDemand) == 0 {
		return fmt.Errorf("%w: no future demand", ErrInvalidInputs)
	}
	for name, n := range map[string]int{
		"max contiguous":       len(in.MaxContiguous),
		"hours remaining":      len(in.HoursRemaining),
		"weekly target":        len(in.WeeklyTarget),
		"preferred contiguous": len(in.PreferredContiguous),
	} {
		if n != s {
			return fmt.Errorf("%w: %s has %d entries for %d staff", ErrInvalidInputs, name, n, s)
		}
	}
	if in.NonCohort.Start < 0 || in.NonCohort.Start > in.NonCohort.End || in.NonCohort.End != s {
		return fmt.Errorf("%w: non day-one staff must occupy the tail of the index space, got [%d,%d) for %d staff",
			ErrInvalidInputs, in.NonCohort.Start, in.NonCohort.End, s)
	}
	c := in.CohortSize()
	if len(in.ChangedWeight) != c {
		return fmt.Errorf("%w: %d changed weights for %d day-one staff", ErrInvalidInputs, len(in.ChangedWeight), c)
	}
	for k, week := range in.PastAssignments {
		if len(week) != c {
			return fmt.Errorf("%w: past week %d has %d assignments for %d day-one staff", ErrInvalidInputs, k, len(week), c)
		}
		for i, g := range week {
			if !g.IsBinary() {
				return fmt.Errorf("%w: past week %d staff %d is not 0/1", ErrInvalidInputs, k, i)
			}
		}
	}
	for w, g := range in.FutureDemand {
		for d := 0; d < grid.Days; d++ {
			for sl := 0; sl < grid.Slots; sl++ {
				if g[d][sl] < 0 {
					return fmt.Errorf("%w: negative demand in week %d", ErrInvalidInputs, w)
				}
			}
		}
	}
	for i, g := range in.Availability {
		if in.WeeklyTarget[i] < 0 {
			return fmt.Errorf("%w: negative weekly target for staff %d", ErrInvalidInputs, i)
		}
		for d := 0; d < grid.Days; d++ {
			for sl := 0; sl < grid.Slots; sl++ {
				if r := g[d][sl]; r < grid.MinRating || r > grid.Unavailable {
					return fmt.Errorf("%w: staff %d rating %d out of range", ErrInvalidInputs, i, r)
				}
			}
		}
	}
	return nil
}
