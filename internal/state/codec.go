package state

import (
	"encoding/json"
	"fmt"

	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// SnapshotVersion is written into every persisted week.
const SnapshotVersion = 1

type snapshot struct {
	Version         int                   `json:"version"`
	Section         string                `json:"section"`
	Week            int                   `json:"week"`
	WeeksRemaining  int                   `json:"weeks_remaining"`
	WeeksSkipped    int                   `json:"weeks_skipped"`
	RowsConsumed    int                   `json:"rows_consumed"`
	FirstCohortSize int                   `json:"first_cohort_size"`
	Identity        []string              `json:"identity"`
	Staff           []*roster.StaffRecord `json:"staff"`
	Demand          []grid.Grid           `json:"demand"`
}

// Encode serialises a frozen week.
func Encode(s *WeeklyState, weeksSkipped int) ([]byte, error) {
	snap := snapshot{
		Version:         SnapshotVersion,
		Section:         s.section,
		Week:            s.week,
		WeeksRemaining:  s.weeksRemaining,
		WeeksSkipped:    weeksSkipped,
		RowsConsumed:    s.rowsConsumed,
		FirstCohortSize: s.firstCohort,
		Identity:        s.identity.Order(),
		Staff:           s.records,
		Demand:          s.demand,
	}
	data, err := json.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("encode week %d: %w", s.week, err)
	}
	return data, nil
}

// Decode rebuilds a week and checks it is self-consistent. Linking it to
// neighbouring weeks is the chain's job.
func Decode(data []byte) (*WeeklyState, int, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if snap.Version != SnapshotVersion {
		return nil, 0, fmt.Errorf("%w: version %d, expected %d", ErrCorruptSnapshot, snap.Version, SnapshotVersion)
	}
	if len(snap.Staff) != len(snap.Identity) {
		return nil, 0, fmt.Errorf("%w: week %d has %d records for %d identities",
			ErrCorruptSnapshot, snap.Week, len(snap.Staff), len(snap.Identity))
	}
	if snap.FirstCohortSize < 0 || snap.FirstCohortSize > len(snap.Staff) {
		return nil, 0, fmt.Errorf("%w: week %d day-one count %d out of range", ErrCorruptSnapshot, snap.Week, snap.FirstCohortSize)
	}
	identity, err := roster.IdentityMapFromOrder(snap.Identity)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	for i, r := range snap.Staff {
		if r == nil || r.Email != snap.Identity[i] {
			return nil, 0, fmt.Errorf("%w: week %d record %d does not match identity %s",
				ErrCorruptSnapshot, snap.Week, i, snap.Identity[i])
		}
		if r.Assigned == nil || !r.Assigned.IsBinary() {
			return nil, 0, fmt.Errorf("%w: week %d record %s has no valid assignment", ErrCorruptSnapshot, snap.Week, r.Email)
		}
	}

	s := &WeeklyState{
		section:        snap.Section,
		week:           snap.Week,
		weeksRemaining: snap.WeeksRemaining,
		rowsConsumed:   snap.RowsConsumed,
		firstCohort:    snap.FirstCohortSize,
		identity:       identity,
		records:        snap.Staff,
		demand:         snap.Demand,
	}
	return s, snap.WeeksSkipped, nil
}
