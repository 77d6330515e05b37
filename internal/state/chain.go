// Package state keeps one frozen snapshot per scheduled week and derives
// optimizer inputs from the chain of snapshots.
package state

import (
	"fmt"

	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// ChainConfig is fixed for a semester.
type ChainConfig struct {
	Section      string
	WeeksTotal   int
	WeeksSkipped int
	// Multiplier scales preferred contiguous hours into the contiguous ceiling.
	Multiplier int
}

func (c ChainConfig) Validate() error {
	if c.WeeksTotal < 1 {
		return fmt.Errorf("%w: weeks_total must be positive", ErrInvalidChainConfig)
	}
	if c.WeeksSkipped < 0 || c.WeeksSkipped >= c.WeeksTotal {
		return fmt.Errorf("%w: weeks_skipped must be in [0, %d)", ErrInvalidChainConfig, c.WeeksTotal)
	}
	if c.Multiplier < 1 {
		return fmt.Errorf("%w: weekly hour multiplier must be at least 1", ErrInvalidChainConfig)
	}
	return nil
}

// FirstWeek is the week number of the first state in the chain.
func (c ChainConfig) FirstWeek() int { return c.WeeksSkipped + 1 }

// Chain is an arena of frozen weekly states ordered by week. A state's
// predecessor is the entry for week-1.
type Chain struct {
	cfg    ChainConfig
	states []*WeeklyState
	// persisted counts the leading states known to be in the store.
	persisted int
}

func NewChain(cfg ChainConfig) (*Chain, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Chain{cfg: cfg}, nil
}

func (c *Chain) Config() ChainConfig { return c.cfg }

func (c *Chain) Len() int { return len(c.states) }

// Latest returns the newest frozen state, or nil for an empty chain.
func (c *Chain) Latest() *WeeklyState {
	if len(c.states) == 0 {
		return nil
	}
	return c.states[len(c.states)-1]
}

// At returns the state for a week number.
func (c *Chain) At(week int) (*WeeklyState, bool) {
	i := week - c.cfg.FirstWeek()
	if i < 0 || i >= len(c.states) {
		return nil, false
	}
	return c.states[i], true
}

// Predecessor returns the state for the week before s.
func (c *Chain) Predecessor(s *WeeklyState) (*WeeklyState, bool) {
	return c.At(s.week - 1)
}

// States returns the frozen states oldest first.
func (c *Chain) States() []*WeeklyState {
	return append([]*WeeklyState(nil), c.states...)
}

// NextWeek is the week number the next Extend would create.
func (c *Chain) NextWeek() int {
	return c.cfg.FirstWeek() + len(c.states)
}

// Extend starts the next week from the latest state, folding in rows past
// the ones already consumed. rows is the full list from the source, in
// submission order. Nothing in the chain changes until the draft is frozen.
func (c *Chain) Extend(demand []grid.Grid, rows []roster.AvailabilityRow) (*Draft, error) {
	if len(demand) != c.cfg.WeeksTotal {
		return nil, fmt.Errorf("%w: demand covers %d weeks, semester has %d", ErrShapeMismatch, len(demand), c.cfg.WeeksTotal)
	}

	prev := c.Latest()
	var s *WeeklyState
	if prev == nil {
		s = &WeeklyState{
			section:        c.cfg.Section,
			week:           c.cfg.FirstWeek(),
			weeksRemaining: c.cfg.WeeksTotal - c.cfg.WeeksSkipped,
			identity:       roster.NewIdentityMap(),
		}
	} else {
		if prev.weeksRemaining <= 1 {
			return nil, fmt.Errorf("%w: week %d was the last", ErrSemesterOver, prev.week)
		}
		s = &WeeklyState{
			section:        prev.section,
			week:           prev.week + 1,
			weeksRemaining: prev.weeksRemaining - 1,
			identity:       prev.identity.Clone(),
			rowsConsumed:   prev.rowsConsumed,
			firstCohort:    prev.firstCohort,
			records:        make([]*roster.StaffRecord, len(prev.records)),
		}
		for i, r := range prev.records {
			rec := r.Clone()
			rec.Assigned = nil
			s.records[i] = rec
		}
	}
	s.demand = append([]grid.Grid(nil), demand...)

	if len(rows) < s.rowsConsumed {
		return nil, fmt.Errorf("%w: %d rows, %d consumed", ErrRowsRewound, len(rows), s.rowsConsumed)
	}
	if err := s.fold(rows[s.rowsConsumed:]); err != nil {
		return nil, err
	}
	if prev == nil {
		s.firstCohort = len(s.records)
	}
	return &Draft{chain: c, state: s, base: len(c.states)}, nil
}

// append links a frozen state as the newest week after checking it
// continues the chain.
func (c *Chain) append(s *WeeklyState) error {
	want := c.NextWeek()
	if s.week != want {
		return fmt.Errorf("%w: expected week %d, got %d", ErrChainIntegrity, want, s.week)
	}
	if s.section != c.cfg.Section {
		return fmt.Errorf("%w: week %d belongs to section %q, chain is %q", ErrChainIntegrity, s.week, s.section, c.cfg.Section)
	}
	if want := c.cfg.WeeksTotal - s.week + 1; s.weeksRemaining != want {
		return fmt.Errorf("%w: week %d has %d weeks remaining, expected %d", ErrChainIntegrity, s.week, s.weeksRemaining, want)
	}
	if prev := c.Latest(); prev != nil {
		if err := identityExtends(prev.identity, s.identity); err != nil {
			return fmt.Errorf("week %d: %w", s.week, err)
		}
		if s.firstCohort != prev.firstCohort {
			return fmt.Errorf("%w: week %d day-one count %d, week %d has %d",
				ErrChainIntegrity, s.week, s.firstCohort, prev.week, prev.firstCohort)
		}
		if s.rowsConsumed < prev.rowsConsumed {
			return fmt.Errorf("%w: week %d consumed fewer rows than week %d", ErrChainIntegrity, s.week, prev.week)
		}
	}
	c.states = append(c.states, s)
	return nil
}

// identityExtends checks that newer only appends to older: every email keeps
// its index and nothing is dropped.
func identityExtends(older, newer *roster.IdentityMap) error {
	if newer.Len() < older.Len() {
		return fmt.Errorf("%w: %d staff shrank to %d", roster.ErrIdentityMismatch, older.Len(), newer.Len())
	}
	for i, email := range older.Order() {
		if got, _ := newer.Email(i); got != email {
			return fmt.Errorf("%w: index %d is %s, was %s", roster.ErrIdentityMismatch, i, got, email)
		}
	}
	return nil
}
