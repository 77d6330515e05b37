package optimizer

import (
	"context"
	"math"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// costScale turns fractional objective weights into integer arc costs.
const costScale = 100

// problem is the preprocessed form of Inputs shared by both solver phases.
type problem struct {
	cfg     Config
	staff   int
	cohort  int
	horizon int

	demand   []grid.Grid // [horizon]
	lower    []grid.Grid // minimum headcount per slot, 0 where demand is 0
	target   []int
	capacity []int // weekly hours cap per staff
	budget   []int // hours remaining in the semester

	// linearCost[i][f][d][s] is the per-unit cost of assigning staff i at
	// lookahead week f: displeasure minus the backward consistency credit.
	linearCost [][][grid.Days][grid.Slots]float64

	// forward[f] is the consistency weight between lookahead week 0 and week f.
	forward []float64
}

func newProblem(in *Inputs, cfg Config) *problem {
	horizon := cfg.Lookahead
	if len(in.FutureDemand) < horizon {
		horizon = len(in.FutureDemand)
	}
	p := &problem{
		cfg:     cfg,
		staff:   in.StaffCount(),
		cohort:  in.CohortSize(),
		horizon: horizon,
		demand:  in.FutureDemand[:horizon],
		target:  in.WeeklyTarget,
		budget:  in.HoursRemaining,
	}

	p.lower = make([]grid.Grid, horizon)
	for f := 0; f < horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if dem := p.demand[f][d][s]; dem > 0 {
					l := dem - cfg.MaxUnderstaffed
					if l < 1 {
						l = 1
					}
					p.lower[f][d][s] = l
				}
			}
		}
	}

	p.capacity = make([]int, p.staff)
	for i := range p.capacity {
		p.capacity[i] = in.WeeklyTarget[i] + cfg.MaxWeeklyOverage
	}

	// Backward consistency: credit for keeping a slot a day-one staff member
	// worked in earlier weeks, damped when their availability moved a lot.
	backward := make([][grid.Days][grid.Slots]float64, p.cohort)
	for k, week := range in.PastAssignments {
		w := cfg.decayWeight(k + 1)
		for i := 0; i < p.cohort; i++ {
			damp := damping(in.ChangedWeight[i])
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					if week[i][d][s] == 1 {
						backward[i][d][s] += w * damp
					}
				}
			}
		}
	}

	p.linearCost = make([][][grid.Days][grid.Slots]float64, p.staff)
	for i := 0; i < p.staff; i++ {
		p.linearCost[i] = make([][grid.Days][grid.Slots]float64, horizon)
		for f := 0; f < horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					c := cfg.Weights.Displeasure * cfg.Displeasure[in.Availability[i][d][s]]
					if f == 0 && i < p.cohort {
						c -= cfg.Weights.Consistency * backward[i][d][s]
					}
					p.linearCost[i][f][d][s] = c
				}
			}
		}
	}

	p.forward = make([]float64, horizon)
	for f := 1; f < horizon; f++ {
		p.forward[f] = cfg.decayWeight(f)
	}
	return p
}

func scaled(v float64) int64 {
	return int64(math.Round(v * costScale))
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// varRef locates the arc carrying one decision variable.
type varRef struct {
	node, arc int
}

// seed solves every term except forward consistency exactly as a min-cost
// flow: source -> staff (horizon budget) -> staff-week (weekly target and cap)
// -> slot-week (one arc per decision variable) -> sink (coverage). Coverage
// lower bounds carry a cost below any path without them, so the flow meets
// every lower bound whenever any assignment can.
func (p *problem) seed(ctx context.Context) ([][]grid.Grid, error) {
	const src, sink = 0, 1
	staffNode := func(i int) int { return 2 + i }
	weekNode := func(i, f int) int { return 2 + p.staff + i*p.horizon + f }
	slotNode := func(f, d, s int) int {
		return 2 + p.staff + p.staff*p.horizon + f*grid.Cells + d*grid.Slots + s
	}
	g := newNetwork(2 + p.staff + p.staff*p.horizon + p.horizon*grid.Cells)

	var absSum int64
	add := func(from, to, capacity int, cost int64) int {
		if capacity <= 0 {
			return -1
		}
		absSum += abs64(cost)
		return g.addArc(from, to, capacity, cost)
	}

	w := p.cfg.Weights
	for i := 0; i < p.staff; i++ {
		budget := p.budget[i]
		if budget < 0 {
			budget = 0
		}
		add(src, staffNode(i), budget, 0)
		add(src, staffNode(i), p.horizon*p.capacity[i], scaled(w.HorizonOvershoot))
		for f := 0; f < p.horizon; f++ {
			add(staffNode(i), weekNode(i, f), p.target[i], -scaled(w.WeeklyDeviation))
			add(staffNode(i), weekNode(i, f), p.capacity[i]-p.target[i], scaled(w.WeeklyDeviation))
		}
	}

	refs := make([][][grid.Days][grid.Slots]varRef, p.staff)
	for i := 0; i < p.staff; i++ {
		refs[i] = make([][grid.Days][grid.Slots]varRef, p.horizon)
		for f := 0; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					refs[i][f][d][s] = varRef{node: -1}
					if p.demand[f][d][s] == 0 {
						continue
					}
					from := weekNode(i, f)
					idx := add(from, slotNode(f, d, s), 1, scaled(p.linearCost[i][f][d][s]))
					refs[i][f][d][s] = varRef{node: from, arc: idx}
				}
			}
		}
	}

	type bound struct{ node, arc int }
	bounds := make([][grid.Days][grid.Slots]bound, p.horizon)
	coverage := scaled(w.Coverage)
	// Coverage arcs that do not carry a lower bound are added first so absSum
	// is final before the lower-bound premium is derived from it.
	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				dem, low := p.demand[f][d][s], p.lower[f][d][s]
				if dem == 0 {
					continue
				}
				add(slotNode(f, d, s), sink, dem-low, -coverage)
				add(slotNode(f, d, s), sink, p.staff, coverage)
			}
		}
	}
	premium := absSum + coverage + 1
	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if low := p.lower[f][d][s]; low > 0 {
					idx := g.addArc(slotNode(f, d, s), sink, low, -coverage-premium)
					bounds[f][d][s] = bound{node: slotNode(f, d, s), arc: idx}
				}
			}
		}
	}

	if _, err := g.minCostFlow(ctx, src, sink); err != nil {
		return nil, err
	}

	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				low := p.lower[f][d][s]
				if low == 0 {
					continue
				}
				b := bounds[f][d][s]
				if got := g.flowOn(b.node, b.arc); got < low {
					return nil, &InfeasibleError{Week: f, Day: d, Slot: s, Required: low, Covered: got}
				}
			}
		}
	}

	plan := make([][]grid.Grid, p.staff)
	for i := 0; i < p.staff; i++ {
		plan[i] = make([]grid.Grid, p.horizon)
		for f := 0; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					ref := refs[i][f][d][s]
					if ref.node >= 0 && g.flowOn(ref.node, ref.arc) > 0 {
						plan[i][f][d][s] = 1
					}
				}
			}
		}
	}
	return plan, nil
}
