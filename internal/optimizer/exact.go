package optimizer

import (
	"context"
	"math"
	"math/bits"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// resyncEvery bounds float drift in the running objective of exhaustive.
const resyncEvery = 1 << 16

// variables lists every decision variable that may be 1: slots with demand.
func (p *problem) variables() [][4]int {
	var vars [][4]int
	for i := 0; i < p.staff; i++ {
		for f := 0; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					if p.demand[f][d][s] > 0 {
						vars = append(vars, [4]int{i, f, d, s})
					}
				}
			}
		}
	}
	return vars
}

func (p *problem) emptyPlan() [][]grid.Grid {
	plan := make([][]grid.Grid, p.staff)
	for i := range plan {
		plan[i] = make([]grid.Grid, p.horizon)
	}
	return plan
}

// exhaustive visits every plan over vars in Gray-code order, one flip per
// step, and returns the cheapest one meeting the hard constraints. It
// returns nil when no plan does. len(vars) must be below 64.
func (p *problem) exhaustive(ctx context.Context, in *Inputs, vars [][4]int) ([][]grid.Grid, error) {
	st := newSearch(p, p.emptyPlan())
	base := p.evaluate(in, st.plan).Total

	// Hours start at 0, so only coverage bounds are broken by the empty plan.
	violations := 0
	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if p.lower[f][d][s] > 0 {
					violations++
				}
			}
		}
	}

	var cost float64
	best, found := math.Inf(1), false
	var mask, bestMask uint64
	if violations == 0 {
		best, found = 0, true
	}

	for k := uint64(1); k < 1<<len(vars); k++ {
		if k%resyncEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			cost = p.evaluate(in, st.plan).Total - base
		}
		b := bits.TrailingZeros64(k)
		i, f, d, s := vars[b][0], vars[b][1], vars[b][2], vars[b][3]
		v := 1 - 2*st.plan[i][f][d][s]

		cost += st.delta(i, f, d, s, v)

		h, limit := st.hours[i][f], p.capacity[i]
		switch {
		case h <= limit && h+v > limit:
			violations++
		case h > limit && h+v <= limit:
			violations--
		}
		c, low := st.count[f][d][s], p.lower[f][d][s]
		switch {
		case c >= low && c+v < low:
			violations++
		case c < low && c+v >= low:
			violations--
		}

		st.flip(i, f, d, s, v)
		mask ^= 1 << b
		if violations == 0 && cost < best {
			best, bestMask, found = cost, mask, true
		}
	}
	if !found {
		return nil, nil
	}

	plan := p.emptyPlan()
	for b, v := range vars {
		if bestMask&(1<<b) != 0 {
			plan[v[0]][v[1]][v[2]][v[3]] = 1
		}
	}
	return plan, nil
}
