package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/arnavshah/oh-scheduler-go/internal/optimizer"
	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/internal/state"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
	"github.com/arnavshah/oh-scheduler-go/pkg/report"
)

var (
	// ErrWeekNotFound is returned when a week has not been scheduled yet.
	ErrWeekNotFound = errors.New("week not scheduled")
	// ErrStaffNotFound is returned for an email missing from a week.
	ErrStaffNotFound = errors.New("staff member not found")
)

func (r *Runner) buildReport(s *state.WeeklyState, in *optimizer.Inputs, assignment []grid.Grid) *report.Report {
	demand, _ := s.Demand(s.Week())
	staff := make([]report.Staff, 0, len(assignment))
	for i, rec := range s.Records() {
		staff = append(staff, report.Staff{
			Email:         rec.Email,
			Availability:  rec.Availability,
			WeeklyTarget:  rec.WeeklyTargetHours,
			MaxContiguous: in.MaxContiguous[i],
			Assignment:    assignment[i],
		})
	}
	return report.Build(s.Week(), demand, staff, r.settings.Optimizer.MaxWeeklyOverage)
}

// Chain loads the persisted chain without taking the lease.
func (r *Runner) Chain(ctx context.Context) (*state.Chain, error) {
	return state.Load(ctx, r.deps.Store, r.settings.Prefix, r.settings.Chain)
}

// WeekSummary is a persisted week as shown to operators.
type WeekSummary struct {
	Week           int            `json:"week"`
	WeeksRemaining int            `json:"weeks_remaining"`
	StaffCount     int            `json:"staff_count"`
	FirstCohort    int            `json:"first_cohort_size"`
	RowsConsumed   int            `json:"rows_consumed"`
	Staff          []StaffSummary `json:"staff"`
	Report         *report.Report `json:"report,omitempty"`
}

// StaffSummary is one staff member's line in a week summary.
type StaffSummary struct {
	Index          int        `json:"index"`
	Email          string     `json:"email"`
	WeeklyTarget   int        `json:"weekly_target"`
	HoursRemaining int        `json:"hours_remaining"`
	Assigned       *grid.Grid `json:"assigned,omitempty"`
}

// Week summarises one persisted week.
func (r *Runner) Week(ctx context.Context, week int) (*WeekSummary, error) {
	chain, err := r.Chain(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := chain.At(week)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrWeekNotFound, week)
	}
	return r.summarize(s), nil
}

func (r *Runner) summarize(s *state.WeeklyState) *WeekSummary {
	sum := &WeekSummary{
		Week:           s.Week(),
		WeeksRemaining: s.WeeksRemaining(),
		StaffCount:     s.StaffCount(),
		FirstCohort:    s.FirstCohortSize(),
		RowsConsumed:   s.RowsConsumed(),
	}
	records := s.Records()
	staff := make([]report.Staff, len(records))
	for i, rec := range records {
		sum.Staff = append(sum.Staff, StaffSummary{
			Index:          i,
			Email:          rec.Email,
			WeeklyTarget:   rec.WeeklyTargetHours,
			HoursRemaining: rec.HoursRemaining,
			Assigned:       rec.Assigned,
		})
		staff[i] = report.Staff{
			Email:         rec.Email,
			Availability:  rec.Availability,
			WeeklyTarget:  rec.WeeklyTargetHours,
			MaxContiguous: rec.PreferredContiguousHours * r.settings.Chain.Multiplier,
		}
		if rec.Assigned != nil {
			staff[i].Assignment = *rec.Assigned
		}
	}
	if s.Assignments() != nil {
		demand, _ := s.Demand(s.Week())
		sum.Report = report.Build(s.Week(), demand, staff, r.settings.Optimizer.MaxWeeklyOverage)
	}
	return sum
}

// Weeks lists the persisted week numbers, oldest first.
func (r *Runner) Weeks(ctx context.Context) ([]int, error) {
	chain, err := r.Chain(ctx)
	if err != nil {
		return nil, err
	}
	weeks := make([]int, 0, chain.Len())
	for _, s := range chain.States() {
		weeks = append(weeks, s.Week())
	}
	return weeks, nil
}

// StaffWeek returns one person's record for a persisted week.
func (r *Runner) StaffWeek(ctx context.Context, week int, email string) (*StaffSummary, error) {
	chain, err := r.Chain(ctx)
	if err != nil {
		return nil, err
	}
	s, ok := chain.At(week)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrWeekNotFound, week)
	}
	idx, ok := s.Index(roster.NormalizeEmail(email))
	if !ok {
		return nil, fmt.Errorf("%w: %s in week %d", ErrStaffNotFound, email, week)
	}
	rec, _ := s.Record(idx)
	return &StaffSummary{
		Index:          idx,
		Email:          rec.Email,
		WeeklyTarget:   rec.WeeklyTargetHours,
		HoursRemaining: rec.HoursRemaining,
		Assigned:       rec.Assigned,
	}, nil
}
