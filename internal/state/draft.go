package state

import (
	"fmt"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Draft is the next week under construction. It becomes part of the chain
// only through Freeze, after a successful Commit.
type Draft struct {
	chain  *Chain
	state  *WeeklyState
	base   int // chain length when the draft was made
	frozen bool
}

// State exposes the draft for reading. Callers must not hold on to it
// across Commit.
func (d *Draft) State() *WeeklyState { return d.state }

// Inputs derives the optimizer inputs for this week after checking that
// every ancestor agrees on staff identity.
func (d *Draft) Inputs() (*optimizer.Inputs, error) {
	s := d.state
	c := d.chain
	if len(c.states) != d.base {
		return nil, ErrStaleDraft
	}

	// Ancestors newest first: week-1, week-2, ...
	ancestors := make([]*WeeklyState, 0, len(c.states))
	for i := len(c.states) - 1; i >= 0; i-- {
		ancestors = append(ancestors, c.states[i])
	}
	for _, a := range ancestors {
		if err := identityExtends(a.identity, s.identity); err != nil {
			return nil, fmt.Errorf("%w: week %d against week %d: %w", ErrChainIntegrity, s.week, a.week, err)
		}
	}

	start := s.week - 1
	end := start + s.weeksRemaining
	if start < 0 || end > len(s.demand) {
		return nil, fmt.Errorf("%w: weeks %d..%d outside %d weeks of demand", ErrShapeMismatch, start+1, end, len(s.demand))
	}

	n := len(s.records)
	cohort := s.firstCohort
	in := &optimizer.Inputs{
		FutureDemand:        append([]grid.Grid(nil), s.demand[start:end]...),
		PastAssignments:     make([][]grid.Grid, len(ancestors)),
		Availability:        make([]grid.Grid, n),
		MaxContiguous:       make([]int, n),
		HoursRemaining:      make([]int, n),
		WeeklyTarget:        make([]int, n),
		PreferredContiguous: make([]int, n),
		ChangedWeight:       make([]float64, cohort),
		NonCohort:           optimizer.IndexRange{Start: cohort, End: n},
	}

	for k, a := range ancestors {
		week := make([]grid.Grid, cohort)
		for i := 0; i < cohort; i++ {
			if i >= len(a.records) || a.records[i].Assigned == nil {
				return nil, fmt.Errorf("%w: week %d has no assignment for day-one index %d", ErrChainIntegrity, a.week, i)
			}
			week[i] = *a.records[i].Assigned
		}
		in.PastAssignments[k] = week
	}

	for i, r := range s.records {
		in.Availability[i] = r.Availability
		in.MaxContiguous[i] = r.PreferredContiguousHours * c.cfg.Multiplier
		in.HoursRemaining[i] = r.HoursRemaining
		in.WeeklyTarget[i] = r.WeeklyTargetHours
		in.PreferredContiguous[i] = r.PreferredContiguousHours
	}

	if len(ancestors) > 0 {
		prev := ancestors[0]
		for i := 0; i < cohort; i++ {
			in.ChangedWeight[i] = s.records[i].AvailabilityDifference(prev.records[i].Availability)
		}
	}

	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// Commit stores this week's assignment, indexed like the identity map, and
// charges each ledger. It either applies every row or none.
func (d *Draft) Commit(assignment []grid.Grid) error {
	s := d.state
	if d.frozen {
		return fmt.Errorf("%w: week %d is frozen", ErrAlreadyCommitted, s.week)
	}
	if len(assignment) != len(s.records) {
		return fmt.Errorf("%w: %d assignments for %d staff", ErrShapeMismatch, len(assignment), len(s.records))
	}
	if len(s.records) > 0 && s.records[0].Assigned != nil {
		return fmt.Errorf("%w: week %d", ErrAlreadyCommitted, s.week)
	}
	for i, g := range assignment {
		if !g.IsBinary() {
			return fmt.Errorf("%w: assignment %d is not 0/1", ErrShapeMismatch, i)
		}
	}
	for i, g := range assignment {
		if err := s.records[i].SetAssignment(g); err != nil {
			return err
		}
	}
	return nil
}

// Freeze appends the committed week to the chain and returns it.
func (d *Draft) Freeze() (*WeeklyState, error) {
	if d.frozen {
		return d.state, nil
	}
	if !d.state.committed() {
		return nil, fmt.Errorf("%w: week %d", ErrNotCommitted, d.state.week)
	}
	if len(d.chain.states) != d.base {
		return nil, ErrStaleDraft
	}
	if err := d.chain.append(d.state); err != nil {
		return nil, err
	}
	d.frozen = true
	return d.state, nil
}
