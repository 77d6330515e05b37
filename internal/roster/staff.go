package roster

import (
	"fmt"
	"strings"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// AvailabilityRow is one submission of the staff availability form.
type AvailabilityRow struct {
	Email                    string    `json:"email" validate:"required,email"`
	Role                     string    `json:"role"`
	TotalWeeklyHours         int       `json:"total_weekly_hours" validate:"gte=0"`
	SemestersOnStaff         int       `json:"semesters_on_staff" validate:"gte=0"`
	SemestersAsAI            int       `json:"semesters_as_ai" validate:"gte=0"`
	WeeklyTargetHours        int       `json:"weekly_target_hours" validate:"gte=0,ltefield=TotalWeeklyHours"`
	PreferredContiguousHours int       `json:"preferred_contiguous_hours" validate:"gte=0,ltefield=WeeklyTargetHours"`
	Ratings                  grid.Grid `json:"ratings"`
}

// StaffRecord is a staff member's quota, preferences and remaining-hours ledger
// as of one week.
type StaffRecord struct {
	Email                    string     `json:"email"`
	WeeklyTargetHours        int        `json:"weekly_target_hours"`
	PreferredContiguousHours int        `json:"preferred_contiguous_hours"`
	Availability             grid.Grid  `json:"availability"`
	HoursRemaining           int        `json:"hours_remaining"`
	Assigned                 *grid.Grid `json:"assigned,omitempty"`

	// Descriptive fields, carried through untouched
	Role             string `json:"role"`
	TotalWeeklyHours int    `json:"total_weekly_hours"`
	SemestersOnStaff int    `json:"semesters_on_staff"`
	SemestersAsAI    int    `json:"semesters_as_ai"`
}

// NewStaffRecord creates a record from a form row. The ledger starts at
// weeksRemaining x weekly target.
func NewStaffRecord(row AvailabilityRow, weeksRemaining int) *StaffRecord {
	r := &StaffRecord{
		Email:          row.Email,
		HoursRemaining: weeksRemaining * row.WeeklyTargetHours,
	}
	r.WeeklyTargetHours = row.WeeklyTargetHours
	r.applyDescriptive(row)
	return r
}

func (r *StaffRecord) applyDescriptive(row AvailabilityRow) {
	r.Role = row.Role
	r.TotalWeeklyHours = row.TotalWeeklyHours
	r.SemestersOnStaff = row.SemestersOnStaff
	r.SemestersAsAI = row.SemestersAsAI
	r.PreferredContiguousHours = row.PreferredContiguousHours
	r.Availability = row.Ratings
}

// Update folds a newer form submission into the record. The ledger is only
// recomputed when the weekly target changes, so resubmitting the form never
// restores hours that were already worked.
func (r *StaffRecord) Update(row AvailabilityRow, weeksRemaining int) error {
	if row.Email != r.Email {
		return fmt.Errorf("%w: record %s, row %s", ErrEmailMismatch, r.Email, row.Email)
	}
	r.applyDescriptive(row)
	if row.WeeklyTargetHours != r.WeeklyTargetHours {
		r.WeeklyTargetHours = row.WeeklyTargetHours
		r.HoursRemaining = weeksRemaining * row.WeeklyTargetHours
	}
	return nil
}

// SetAssignment records this week's assignment and charges it to the ledger.
func (r *StaffRecord) SetAssignment(assignment grid.Grid) error {
	if !assignment.IsBinary() {
		return fmt.Errorf("%w: assignment for %s is not 0/1", ErrInvalidAssignment, r.Email)
	}
	a := assignment
	r.Assigned = &a
	r.HoursRemaining -= assignment.Sum()
	return nil
}

// AvailabilityDifference is the signed relative change in available slots
// between this record and a previous availability grid:
// (available now - available before) / available before.
func (r *StaffRecord) AvailabilityDifference(previous grid.Grid) float64 {
	now := r.Availability.Available().Sum()
	before := previous.Available().Sum()
	if before == 0 {
		if now == 0 {
			return 0
		}
		return 1
	}
	return float64(now-before) / float64(before)
}

// Clone returns a deep copy.
func (r *StaffRecord) Clone() *StaffRecord {
	c := *r
	if r.Assigned != nil {
		a := *r.Assigned
		c.Assigned = &a
	}
	return &c
}

func (r *StaffRecord) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Email: %s\n", r.Email)
	fmt.Fprintf(&b, "Weekly Office Hours: %d\n", r.WeeklyTargetHours)
	fmt.Fprintf(&b, "Preferred Contiguous Hours: %d\n", r.PreferredContiguousHours)
	fmt.Fprintf(&b, "Hours Left: %d\n", r.HoursRemaining)
	fmt.Fprintf(&b, "Availabilities:\n%s\n", r.Availability)
	if r.Assigned != nil {
		fmt.Fprintf(&b, "Assigned Hours:\n%s\n", *r.Assigned)
	}
	return b.String()
}
