package roster

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

func availableIn(cells ...[2]int) grid.Grid {
	var g grid.Grid
	for d := range g {
		for s := range g[d] {
			g[d][s] = grid.Unavailable
		}
	}
	for _, c := range cells {
		g[c[0]][c[1]] = 1
	}
	return g
}

func testRow(email string, target int) AvailabilityRow {
	return AvailabilityRow{
		Email:                    email,
		Role:                     "tutor",
		TotalWeeklyHours:         10,
		WeeklyTargetHours:        target,
		PreferredContiguousHours: 1,
		Ratings:                  availableIn([2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0}, [2]int{2, 5}),
	}
}

func TestNewStaffRecord_Ledger(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	assert.Equal(t, 30, r.HoursRemaining)
	assert.Nil(t, r.Assigned)
}

func TestUpdate_CarriesLedgerWhenTargetUnchanged(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	var week grid.Grid
	week[0][0], week[0][1], week[1][0] = 1, 1, 1
	require.NoError(t, r.SetAssignment(week))
	require.Equal(t, 27, r.HoursRemaining)

	row := testRow("a@berkeley.edu", 3)
	row.PreferredContiguousHours = 2
	require.NoError(t, r.Update(row, 9))
	assert.Equal(t, 27, r.HoursRemaining, "Expected ledger to be carried over")
	assert.Equal(t, 2, r.PreferredContiguousHours)
}

func TestUpdate_ResetsLedgerWhenTargetChanges(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	require.NoError(t, r.Update(testRow("a@berkeley.edu", 2), 9))
	assert.Equal(t, 18, r.HoursRemaining)
	assert.Equal(t, 2, r.WeeklyTargetHours)
}

func TestUpdate_EmailMismatch(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	err := r.Update(testRow("b@berkeley.edu", 3), 9)
	assert.True(t, errors.Is(err, ErrEmailMismatch))
}

func TestSetAssignment_RejectsNonBinary(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	var bad grid.Grid
	bad[0][0] = 2
	assert.True(t, errors.Is(r.SetAssignment(bad), ErrInvalidAssignment))
	assert.Equal(t, 30, r.HoursRemaining)
}

func TestAvailabilityDifference(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	assert.Equal(t, 0.0, r.AvailabilityDifference(r.Availability))

	fewer := availableIn([2]int{0, 0}, [2]int{0, 1})
	assert.InDelta(t, 1.0, r.AvailabilityDifference(fewer), 1e-9)

	more := availableIn([2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0}, [2]int{2, 5}, [2]int{3, 3}, [2]int{3, 4}, [2]int{3, 5}, [2]int{3, 6})
	assert.InDelta(t, -0.5, r.AvailabilityDifference(more), 1e-9)
}

func TestClone_IsDeep(t *testing.T) {
	r := NewStaffRecord(testRow("a@berkeley.edu", 3), 10)
	var week grid.Grid
	week[0][0] = 1
	require.NoError(t, r.SetAssignment(week))

	c := r.Clone()
	c.Assigned[0][0] = 0
	c.Availability[0][0] = 5
	assert.Equal(t, 1, r.Assigned[0][0])
	assert.Equal(t, 1, r.Availability[0][0])
}

func TestIdentityMap(t *testing.T) {
	m := NewIdentityMap()
	i, err := m.Assign("a@x.edu")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
	i, err = m.Assign("b@x.edu")
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = m.Assign("a@x.edu")
	assert.True(t, errors.Is(err, ErrDuplicateIdentity))

	email, ok := m.Email(1)
	assert.True(t, ok)
	assert.Equal(t, "b@x.edu", email)
	_, ok = m.Email(2)
	assert.False(t, ok)

	c := m.Clone()
	_, err = c.Assign("c@x.edu")
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.NoError(t, m.ConsistentWith(c))

	rebuilt, err := IdentityMapFromOrder([]string{"b@x.edu", "a@x.edu"})
	require.NoError(t, err)
	assert.True(t, errors.Is(m.ConsistentWith(rebuilt), ErrIdentityMismatch))
}

func TestValidateRow(t *testing.T) {
	require.NoError(t, ValidateRow(0, testRow("a@berkeley.edu", 3)))

	bad := testRow("not-an-email", 3)
	err := ValidateRow(2, bad)
	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 2, rowErr.Row)
	assert.True(t, errors.Is(err, ErrInvalidRow))

	over := testRow("a@berkeley.edu", 11)
	assert.Error(t, ValidateRow(0, over), "target above total appointment hours")

	pref := testRow("a@berkeley.edu", 2)
	pref.PreferredContiguousHours = 3
	assert.Error(t, ValidateRow(0, pref))

	short := testRow("a@berkeley.edu", 5)
	assert.Error(t, ValidateRow(0, short), "only four available slots")

	rating := testRow("a@berkeley.edu", 3)
	rating.Ratings[4][11] = 0
	assert.Error(t, ValidateRow(0, rating))
}

func TestLatestByEmail(t *testing.T) {
	rows := []AvailabilityRow{testRow("a@x.edu", 1), testRow("b@x.edu", 2), testRow("a@x.edu", 3)}
	out := LatestByEmail(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "a@x.edu", out[0].Email)
	assert.Equal(t, 3, out[0].WeeklyTargetHours)
	assert.Equal(t, "b@x.edu", out[1].Email)
}
