package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

func filled(v int) grid.Grid {
	var g grid.Grid
	for d := range g {
		for s := range g[d] {
			g[d][s] = v
		}
	}
	return g
}

// fixture builds inputs where everyone is a day-one staff member with no history.
func fixture(demand []grid.Grid, availability []grid.Grid, targets []int) *Inputs {
	n := len(availability)
	in := &Inputs{
		FutureDemand:        demand,
		Availability:        availability,
		MaxContiguous:       make([]int, n),
		HoursRemaining:      make([]int, n),
		WeeklyTarget:        targets,
		PreferredContiguous: make([]int, n),
		ChangedWeight:       make([]float64, n),
		NonCohort:           IndexRange{Start: n, End: n},
	}
	for i := range availability {
		in.MaxContiguous[i] = 2
		in.PreferredContiguous[i] = 1
		in.HoursRemaining[i] = targets[i] * len(demand)
	}
	return in
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.TimeLimit = 10 * time.Second
	return cfg
}

func TestSolve_ExactFit(t *testing.T) {
	var demand grid.Grid
	demand[0][0], demand[0][1] = 1, 1

	a := filled(grid.Unavailable)
	a[0][0], a[0][1] = 1, 4
	b := filled(grid.Unavailable)
	b[0][0], b[0][1] = 4, 1

	res, err := Solve(context.Background(), fixture([]grid.Grid{demand}, []grid.Grid{a, b}, []int{1, 1}), testConfig())
	require.NoError(t, err)
	assert.Equal(t, StatusSolved, res.Status)
	require.Len(t, res.Assignment, 2)

	var wantA, wantB grid.Grid
	wantA[0][0] = 1
	wantB[0][1] = 1
	assert.Equal(t, wantA, res.Assignment[0])
	assert.Equal(t, wantB, res.Assignment[1])
	assert.InDelta(t, 0, res.Objective.Total, 1e-9)
}

func TestSolve_InfeasibleHeadcount(t *testing.T) {
	var demand grid.Grid
	demand[2][3] = 4 // needs at least 2 with a shortfall cap of 2

	_, err := Solve(context.Background(), fixture([]grid.Grid{demand}, []grid.Grid{filled(1)}, []int{1}), testConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInfeasible))
	assert.Equal(t, StatusInfeasible, StatusOf(err))

	var ie *InfeasibleError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 0, ie.Week)
	assert.Equal(t, 2, ie.Day)
	assert.Equal(t, 3, ie.Slot)
	assert.Equal(t, 2, ie.Required)
	assert.Equal(t, 1, ie.Covered)
}

func TestSolve_InfeasibleWeeklyCap(t *testing.T) {
	var demand grid.Grid
	demand[0][0], demand[1][0], demand[2][0] = 1, 1, 1

	// Target 1 plus one hour of overage cannot cover three slots.
	_, err := Solve(context.Background(), fixture([]grid.Grid{demand}, []grid.Grid{filled(1)}, []int{1}), testConfig())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSolve_CoverageAndZeroDemand(t *testing.T) {
	weeks := make([]grid.Grid, 3)
	for w := range weeks {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < 3; s++ {
				weeks[w][d][s] = 1
			}
		}
		weeks[w][w][5] = 3
	}
	avail := []grid.Grid{filled(2), filled(2), filled(3), filled(1)}
	in := fixture(weeks, avail, []int{4, 4, 4, 4})

	res, err := Solve(context.Background(), in, testConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Horizon)

	for f, demand := range weeks {
		var count grid.Grid
		for i := range avail {
			week := res.Plan[i][f]
			assert.True(t, week.IsBinary())
			assert.LessOrEqual(t, week.Sum(), 5, "staff %d week %d over the weekly cap", i, f)
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					count[d][s] += week[d][s]
				}
			}
		}
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if demand[d][s] == 0 {
					assert.Zero(t, count[d][s], "week %d %s %s has no demand", f, grid.DayNames[d], grid.SlotLabel(s))
					continue
				}
				assert.GreaterOrEqual(t, count[d][s], 1)
				assert.LessOrEqual(t, demand[d][s]-count[d][s], 2)
			}
		}
	}
	for i := range avail {
		assert.Equal(t, res.Plan[i][0], res.Assignment[i])
	}
}

func TestSolve_PrefersPastSlots(t *testing.T) {
	var demand grid.Grid
	demand[0][0], demand[0][1] = 1, 1

	in := fixture([]grid.Grid{demand}, []grid.Grid{filled(1), filled(1)}, []int{1, 1})
	var pastA, pastB grid.Grid
	pastA[0][1] = 1
	pastB[0][0] = 1
	in.PastAssignments = [][]grid.Grid{{pastA, pastB}}

	res, err := Solve(context.Background(), in, testConfig())
	require.NoError(t, err)
	assert.Equal(t, pastA, res.Assignment[0])
	assert.Equal(t, pastB, res.Assignment[1])
	assert.InDelta(t, 0, res.Objective.Consistency, 1e-9)
}

func TestSolve_AvoidsUnavailable(t *testing.T) {
	var demand grid.Grid
	demand[4][11] = 1

	a := filled(grid.Unavailable)
	b := filled(3)
	res, err := Solve(context.Background(), fixture([]grid.Grid{demand}, []grid.Grid{a, b}, []int{1, 1}), testConfig())
	require.NoError(t, err)
	assert.Zero(t, res.Assignment[0].Sum())
	assert.Equal(t, 1, res.Assignment[1][4][11])
}

func TestSolve_NewJoiner(t *testing.T) {
	var demand grid.Grid
	demand[0][0], demand[1][1], demand[2][2] = 1, 1, 1

	in := fixture([]grid.Grid{demand, demand}, []grid.Grid{filled(1), filled(1), filled(1)}, []int{1, 1, 1})
	in.NonCohort = IndexRange{Start: 2, End: 3}
	in.ChangedWeight = []float64{0, 0.5}
	var past grid.Grid
	past[0][0] = 1
	in.PastAssignments = [][]grid.Grid{{past, grid.Grid{}}}

	res, err := Solve(context.Background(), in, testConfig())
	require.NoError(t, err)
	require.Len(t, res.Assignment, 3)
	for i, g := range res.Assignment {
		assert.Equal(t, 1, g.Sum(), "staff %d", i)
	}
	assert.Equal(t, 1, res.Assignment[0][0][0])
}

func TestSolve_InvalidInputs(t *testing.T) {
	var demand grid.Grid
	demand[0][0] = 1

	in := fixture([]grid.Grid{demand}, []grid.Grid{filled(1), filled(1), filled(1)}, []int{1, 1, 1})
	in.NonCohort = IndexRange{Start: 1, End: 2}
	in.ChangedWeight = []float64{0}
	_, err := Solve(context.Background(), in, testConfig())
	assert.ErrorIs(t, err, ErrInvalidInputs)

	in = fixture([]grid.Grid{demand}, []grid.Grid{filled(1)}, []int{1})
	in.Availability[0][0][0] = 6
	_, err = Solve(context.Background(), in, testConfig())
	assert.ErrorIs(t, err, ErrInvalidInputs)

	in = fixture(nil, []grid.Grid{filled(1)}, []int{1})
	_, err = Solve(context.Background(), in, testConfig())
	assert.ErrorIs(t, err, ErrInvalidInputs)

	cfg := testConfig()
	cfg.Version = 0
	_, err = Solve(context.Background(), fixture([]grid.Grid{demand}, []grid.Grid{filled(1)}, []int{1}), cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSolve_DeadlineIsNotConverged(t *testing.T) {
	var demand grid.Grid
	demand[0][0] = 1

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	res, err := Solve(ctx, fixture([]grid.Grid{demand}, []grid.Grid{filled(1)}, []int{1}), testConfig())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConverged)
	assert.Equal(t, StatusNotConverged, StatusOf(err))

	var nc *NotConvergedError
	require.True(t, errors.As(err, &nc))
	assert.Equal(t, "seed", nc.Phase)
}

func TestSolve_Cancelled(t *testing.T) {
	var demand grid.Grid
	demand[0][0] = 1

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := Solve(ctx, fixture([]grid.Grid{demand}, []grid.Grid{filled(1)}, []int{1}), testConfig())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrNotConverged))
}

func TestSolve_HorizonShrinksAtSemesterEnd(t *testing.T) {
	var demand grid.Grid
	demand[0][0] = 1

	cfg := testConfig()
	cfg.Lookahead = 6
	res, err := Solve(context.Background(), fixture([]grid.Grid{demand, demand}, []grid.Grid{filled(1)}, []int{1}), cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Horizon)
	assert.Len(t, res.Plan[0], 2)
}

func TestEvaluate_MatchesHandCount(t *testing.T) {
	var demand grid.Grid
	demand[0][0] = 2

	in := fixture([]grid.Grid{demand}, []grid.Grid{filled(3)}, []int{2})
	cfg := testConfig()
	p := newProblem(in, cfg)

	var g grid.Grid
	g[0][0] = 1
	b := p.evaluate(in, [][]grid.Grid{{g}})
	assert.InDelta(t, 400, b.WeeklyDeviation, 1e-9) // one hour short
	assert.InDelta(t, 0, b.HorizonOvershoot, 1e-9)
	assert.InDelta(t, 700, b.Coverage, 1e-9) // one body short
	assert.InDelta(t, 50*8, b.Displeasure, 1e-9)
	assert.InDelta(t, 1500, b.Total, 1e-9)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Lookahead = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.MaxPasses = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.Displeasure[3] = -1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	for _, n := range []int{-1, maxExactVariables + 1} {
		cfg = DefaultConfig()
		cfg.ExactVariables = n
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "exact_variables %d", n)
	}
	cfg = DefaultConfig()
	cfg.ExactVariables = 0
	assert.NoError(t, cfg.Validate())
}

func TestStatus_OK(t *testing.T) {
	assert.True(t, StatusSolved.OK())
	assert.True(t, StatusFeasible.OK())
	assert.False(t, StatusInfeasible.OK())
	assert.False(t, StatusNotConverged.OK())
}

// randomTiny builds a two-staff, two-week instance with demand in four slots.
func randomTiny(r *rand.Rand) *Inputs {
	const staff, weeks = 2, 2
	cells := r.Perm(grid.Cells)[:4]

	demand := make([]grid.Grid, weeks)
	for f := range demand {
		for _, c := range cells {
			demand[f][c/grid.Slots][c%grid.Slots] = r.Intn(4)
		}
	}
	avail := make([]grid.Grid, staff)
	targets := make([]int, staff)
	for i := range avail {
		for c := 0; c < grid.Cells; c++ {
			avail[i][c/grid.Slots][c%grid.Slots] = 1 + r.Intn(4)
		}
		targets[i] = 1 + r.Intn(2)
	}

	in := fixture(demand, avail, targets)
	for i := range in.HoursRemaining {
		in.HoursRemaining[i] = 1 + r.Intn(5)
	}
	cohort := r.Intn(staff + 1)
	in.NonCohort = IndexRange{Start: cohort, End: staff}
	in.ChangedWeight = make([]float64, cohort)
	for i := range in.ChangedWeight {
		in.ChangedWeight[i] = r.Float64() - 0.5
	}
	if cohort > 0 {
		for k := r.Intn(3); k > 0; k-- {
			week := make([]grid.Grid, cohort)
			for i := range week {
				for _, c := range cells {
					week[i][c/grid.Slots][c%grid.Slots] = r.Intn(2)
				}
			}
			in.PastAssignments = append(in.PastAssignments, week)
		}
	}
	return in
}

// bestByEnumeration scores every 0/1 plan over the demand slots and returns
// the lowest objective among plans within the weekly caps and coverage bounds.
func bestByEnumeration(in *Inputs, cfg Config) (float64, bool) {
	p := newProblem(in, cfg)
	var slots [][3]int
	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if in.FutureDemand[f][d][s] > 0 {
					slots = append(slots, [3]int{f, d, s})
				}
			}
		}
	}
	n := in.StaffCount() * len(slots)

	plan := p.emptyPlan()
	best, found := math.Inf(1), false
	for mask := 0; mask < 1<<n; mask++ {
		for i := range plan {
			for k, sl := range slots {
				plan[i][sl[0]][sl[1]][sl[2]] = (mask >> (i*len(slots) + k)) & 1
			}
		}
		if !withinBounds(in, cfg, p.horizon, plan) {
			continue
		}
		if total := p.evaluate(in, plan).Total; total < best {
			best, found = total, true
		}
	}
	return best, found
}

func withinBounds(in *Inputs, cfg Config, horizon int, plan [][]grid.Grid) bool {
	for f := 0; f < horizon; f++ {
		var count grid.Grid
		for i := range plan {
			if plan[i][f].Sum() > in.WeeklyTarget[i]+cfg.MaxWeeklyOverage {
				return false
			}
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					count[d][s] += plan[i][f][d][s]
				}
			}
		}
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				dem := in.FutureDemand[f][d][s]
				if dem == 0 {
					continue
				}
				if count[d][s] < max(1, dem-cfg.MaxUnderstaffed) {
					return false
				}
			}
		}
	}
	return true
}

func TestSolve_MatchesEnumerationOnTinyInstances(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	cfg := testConfig()

	for trial := 0; trial < 30; trial++ {
		in := randomTiny(r)
		best, ok := bestByEnumeration(in, cfg)

		res, err := Solve(context.Background(), in, cfg)
		if !ok {
			assert.ErrorIs(t, err, ErrInfeasible, "trial %d", trial)
			continue
		}
		require.NoError(t, err, "trial %d", trial)
		assert.True(t, res.Exhaustive, "trial %d", trial)
		assert.Equal(t, StatusSolved, res.Status, "trial %d", trial)
		assert.Zero(t, res.Gap, "trial %d", trial)
		assert.InDelta(t, best, res.Objective.Total, 1e-6, "trial %d", trial)
	}
}

func TestSolve_SearchOnlyReportsGap(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	cfg := testConfig()
	cfg.ExactVariables = 0

	for trial := 0; trial < 30; trial++ {
		in := randomTiny(r)
		best, ok := bestByEnumeration(in, cfg)
		if !ok {
			continue
		}
		res, err := Solve(context.Background(), in, cfg)
		require.NoError(t, err, "trial %d", trial)
		assert.False(t, res.Exhaustive)
		assert.True(t, res.Status.OK())
		assert.GreaterOrEqual(t, res.Gap, 0.0)
		assert.GreaterOrEqual(t, res.Objective.Total, best-1e-6, "trial %d", trial)
		if res.Status == StatusSolved {
			// Only consistency credits are fractional, so flow rounding stays well under one.
			assert.InDelta(t, best, res.Objective.Total, 1, "trial %d", trial)
		} else {
			assert.Greater(t, res.Gap, improveEps)
		}
	}
}

func TestAlign_CarriesWeekZeroIntoLaterWeeks(t *testing.T) {
	var demand grid.Grid
	demand[1][4] = 1

	in := fixture([]grid.Grid{demand, demand}, []grid.Grid{filled(1)}, []int{1})
	p := newProblem(in, testConfig())
	st := newSearch(p, p.emptyPlan())
	before := p.evaluate(in, st.plan).Total

	require.True(t, st.align(0, 1, 4, 1))
	assert.Equal(t, 1, st.plan[0][0][1][4])
	assert.Equal(t, 1, st.plan[0][1][1][4])
	assert.Equal(t, 1, st.moves)
	assert.InDelta(t, 2*(400+700), before-p.evaluate(in, st.plan).Total, 1e-6)
	assert.Zero(t, p.forwardPenalty(st.plan))

	// Dropping week 0 alone only costs, so it is rolled back.
	assert.False(t, st.align(0, 1, 4, -1))
	assert.Equal(t, 1, st.plan[0][0][1][4])
	assert.Equal(t, []int{1, 1}, st.hours[0])
}

func TestAlign_RollsBackWorseMoves(t *testing.T) {
	var demand grid.Grid
	demand[0][0] = 1

	in := fixture([]grid.Grid{demand, demand}, []grid.Grid{filled(grid.Unavailable)}, []int{1})
	p := newProblem(in, testConfig())
	st := newSearch(p, p.emptyPlan())

	assert.False(t, st.align(0, 0, 0, 1))
	assert.Zero(t, st.plan[0][0].Sum())
	assert.Zero(t, st.plan[0][1].Sum())
	assert.Equal(t, []int{0, 0}, st.hours[0])
	assert.Zero(t, st.count[0][0][0])
	assert.Zero(t, st.moves)
}

func TestAlignHandOver_MovesEveryWeek(t *testing.T) {
	var demand grid.Grid
	demand[2][2] = 1

	cheap := filled(1)
	costly := filled(3)
	in := fixture([]grid.Grid{demand, demand}, []grid.Grid{costly, cheap}, []int{1, 1})
	p := newProblem(in, testConfig())

	plan := p.emptyPlan()
	plan[0][0][2][2], plan[0][1][2][2] = 1, 1
	st := newSearch(p, plan)

	require.True(t, st.alignHandOver(0, 1, 2, 2))
	assert.Zero(t, st.plan[0][0][2][2])
	assert.Zero(t, st.plan[0][1][2][2])
	assert.Equal(t, 1, st.plan[1][0][2][2])
	assert.Equal(t, 1, st.plan[1][1][2][2])
	assert.NoError(t, st.feasible())
}
