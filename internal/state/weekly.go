package state

import (
	"fmt"
	"strings"

	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// WeeklyState is the staff roster and ledger as of one week. States in a
// Chain are frozen; accessors hand out copies.
type WeeklyState struct {
	section        string
	week           int
	weeksRemaining int // including this week
	rowsConsumed   int
	firstCohort    int

	identity *roster.IdentityMap
	records  []*roster.StaffRecord // by identity index
	demand   []grid.Grid           // whole semester
}

func (s *WeeklyState) Section() string      { return s.section }
func (s *WeeklyState) Week() int            { return s.week }
func (s *WeeklyState) WeeksRemaining() int  { return s.weeksRemaining }
func (s *WeeklyState) RowsConsumed() int    { return s.rowsConsumed }
func (s *WeeklyState) FirstCohortSize() int { return s.firstCohort }
func (s *WeeklyState) StaffCount() int      { return len(s.records) }

// Emails returns staff emails by identity index.
func (s *WeeklyState) Emails() []string { return s.identity.Order() }

func (s *WeeklyState) Index(email string) (int, bool) { return s.identity.Index(email) }

// Record returns a copy of the record at an identity index.
func (s *WeeklyState) Record(idx int) (*roster.StaffRecord, bool) {
	if idx < 0 || idx >= len(s.records) {
		return nil, false
	}
	return s.records[idx].Clone(), true
}

func (s *WeeklyState) RecordByEmail(email string) (*roster.StaffRecord, bool) {
	idx, ok := s.identity.Index(email)
	if !ok {
		return nil, false
	}
	return s.Record(idx)
}

// Records returns copies of every record by identity index.
func (s *WeeklyState) Records() []*roster.StaffRecord {
	out := make([]*roster.StaffRecord, len(s.records))
	for i, r := range s.records {
		out[i] = r.Clone()
	}
	return out
}

// Demand returns the demand grid for a week of the semester (1-based).
func (s *WeeklyState) Demand(week int) (grid.Grid, bool) {
	if week < 1 || week > len(s.demand) {
		return grid.Grid{}, false
	}
	return s.demand[week-1], true
}

// Assignments returns this week's assignment by identity index, or nil
// before commit.
func (s *WeeklyState) Assignments() []grid.Grid {
	out := make([]grid.Grid, len(s.records))
	for i, r := range s.records {
		if r.Assigned == nil {
			return nil
		}
		out[i] = *r.Assigned
	}
	return out
}

func (s *WeeklyState) committed() bool {
	for _, r := range s.records {
		if r.Assigned == nil {
			return false
		}
	}
	return true
}

// fold applies new form rows: the last row per email wins, unseen emails
// get the next identity index.
func (s *WeeklyState) fold(rows []roster.AvailabilityRow) error {
	for _, row := range roster.LatestByEmail(rows) {
		if idx, ok := s.identity.Index(row.Email); ok {
			if err := s.records[idx].Update(row, s.weeksRemaining); err != nil {
				return err
			}
			continue
		}
		idx, err := s.identity.Assign(row.Email)
		if err != nil {
			return err
		}
		if idx != len(s.records) {
			return fmt.Errorf("%w: %s assigned index %d with %d records", ErrChainIntegrity, row.Email, idx, len(s.records))
		}
		s.records = append(s.records, roster.NewStaffRecord(row, s.weeksRemaining))
	}
	s.rowsConsumed += len(rows)
	return nil
}

// String summarises the week for operators.
func (s *WeeklyState) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Section: %s\n", s.section)
	fmt.Fprintf(&b, "Week: %d (%d remaining)\n", s.week, s.weeksRemaining)
	fmt.Fprintf(&b, "Rows consumed: %d\n", s.rowsConsumed)
	fmt.Fprintf(&b, "Staff: %d (%d day-one)\n", len(s.records), s.firstCohort)
	for i, r := range s.records {
		assigned := "-"
		if r.Assigned != nil {
			assigned = fmt.Sprintf("%d", r.Assigned.Sum())
		}
		tag := ""
		if i >= s.firstCohort {
			tag = " (joined later)"
		}
		fmt.Fprintf(&b, "  [%d] %s target=%d remaining=%d assigned=%s%s\n",
			i, r.Email, r.WeeklyTargetHours, r.HoursRemaining, assigned, tag)
	}
	return b.String()
}
