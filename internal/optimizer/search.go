package optimizer

import (
	"context"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// improveEps is the smallest objective drop accepted as an improvement.
// Rating 5 costs sit near 1e10 so anything finer is float noise.
const improveEps = 1e-4

// search holds a plan plus the running totals needed for O(1) move deltas.
type search struct {
	p     *problem
	plan  [][]grid.Grid
	hours [][]int     // [staff][week]
	total []int       // [staff] hours over the horizon
	count []grid.Grid // [week] headcount per slot
	moves int
}

func newSearch(p *problem, plan [][]grid.Grid) *search {
	st := &search{
		p:     p,
		plan:  plan,
		hours: make([][]int, p.staff),
		total: make([]int, p.staff),
		count: make([]grid.Grid, p.horizon),
	}
	for i := 0; i < p.staff; i++ {
		st.hours[i] = make([]int, p.horizon)
		for f := 0; f < p.horizon; f++ {
			h := plan[i][f].Sum()
			st.hours[i][f] = h
			st.total[i] += h
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					st.count[f][d][s] += plan[i][f][d][s]
				}
			}
		}
	}
	return st
}

// delta is the objective change of flipping plan[i][f][d][s] by v (+1 or -1).
func (st *search) delta(i, f, d, s, v int) float64 {
	p := st.p
	w := p.cfg.Weights

	h := st.hours[i][f]
	out := w.WeeklyDeviation * float64(absInt(h+v-p.target[i])-absInt(h-p.target[i]))

	t := st.total[i]
	out += w.HorizonOvershoot * float64(posInt(t+v-p.budget[i])-posInt(t-p.budget[i]))

	c, dem := st.count[f][d][s], p.demand[f][d][s]
	out += w.Coverage * float64(absInt(c+v-dem)-absInt(c-dem))

	out += float64(v) * p.linearCost[i][f][d][s]

	if i < p.cohort {
		var fwd float64
		if f == 0 {
			for g := 1; g < p.horizon; g++ {
				fwd += p.forward[g] * float64(1-st.plan[i][g][d][s])
			}
		} else {
			fwd = -p.forward[f] * float64(st.plan[i][0][d][s])
		}
		out += w.Consistency * float64(v) * fwd
	}
	return out
}

func (st *search) flip(i, f, d, s, v int) {
	st.plan[i][f][d][s] += v
	st.hours[i][f] += v
	st.total[i] += v
	st.count[f][d][s] += v
}

func (st *search) canAdd(i, f, d, s int) bool {
	return st.plan[i][f][d][s] == 0 && st.p.demand[f][d][s] > 0 && st.hours[i][f] < st.p.capacity[i]
}

func (st *search) canDrop(i, f, d, s int) bool {
	return st.plan[i][f][d][s] == 1 && st.count[f][d][s] > st.p.lower[f][d][s]
}

// pair applies two flips and keeps them only if together they improve the plan.
func (st *search) pair(a, b [4]int, va, vb int) bool {
	first := st.delta(a[0], a[1], a[2], a[3], va)
	st.flip(a[0], a[1], a[2], a[3], va)
	second := st.delta(b[0], b[1], b[2], b[3], vb)
	if first+second < -improveEps {
		st.flip(b[0], b[1], b[2], b[3], vb)
		st.moves++
		return true
	}
	st.flip(a[0], a[1], a[2], a[3], -va)
	return false
}

// flipRef is one applied flip of a compound move.
type flipRef struct{ i, f, d, s, v int }

// journal records the flips of a compound move so it can be rolled back.
type journal struct {
	flips []flipRef
	gain  float64
}

func (st *search) apply(j *journal, i, f, d, s, v int) {
	j.gain += st.delta(i, f, d, s, v)
	st.flip(i, f, d, s, v)
	j.flips = append(j.flips, flipRef{i, f, d, s, v})
}

// rollback undoes every flip after the first n and restores the gain.
func (st *search) rollback(j *journal, n int, gain float64) {
	for k := len(j.flips) - 1; k >= n; k-- {
		r := j.flips[k]
		st.flip(r.i, r.f, r.d, r.s, -r.v)
	}
	j.flips = j.flips[:n]
	j.gain = gain
}

// settle keeps the compound move if it improves the plan and undoes it otherwise.
func (st *search) settle(j *journal) bool {
	if j.gain < -improveEps {
		st.moves++
		return true
	}
	st.rollback(j, 0, 0)
	return false
}

// align flips a day-one staff member's week-0 slot by v, then the same slot
// in each later week where following along lowers the objective.
func (st *search) align(i, d, s, v int) bool {
	var j journal
	st.apply(&j, i, 0, d, s, v)
	for f := 1; f < st.p.horizon; f++ {
		legal := (v > 0 && st.canAdd(i, f, d, s)) || (v < 0 && st.canDrop(i, f, d, s))
		if legal && st.delta(i, f, d, s, v) < 0 {
			st.apply(&j, i, f, d, s, v)
		}
	}
	return st.settle(&j)
}

// alignHandOver gives slot (d, s) from i to k in week 0 and in every later
// week where that hand-over also helps.
func (st *search) alignHandOver(i, k, d, s int) bool {
	var j journal
	st.apply(&j, i, 0, d, s, -1)
	st.apply(&j, k, 0, d, s, 1)
	for f := 1; f < st.p.horizon; f++ {
		if st.plan[i][f][d][s] == 0 || !st.canAdd(k, f, d, s) {
			continue
		}
		n, gain := len(j.flips), j.gain
		st.apply(&j, i, f, d, s, -1)
		st.apply(&j, k, f, d, s, 1)
		if j.gain >= gain {
			st.rollback(&j, n, gain)
		}
	}
	return st.settle(&j)
}

// pass sweeps every move once, applying each improving move as it is found.
// It reports whether anything changed.
func (st *search) pass(ctx context.Context) (bool, error) {
	p := st.p
	improved := false
	for i := 0; i < p.staff; i++ {
		if err := ctx.Err(); err != nil {
			return improved, err
		}
		for f := 0; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					switch {
					case st.canAdd(i, f, d, s):
						if st.delta(i, f, d, s, 1) < -improveEps {
							st.flip(i, f, d, s, 1)
							st.moves++
							improved = true
						}
					case st.canDrop(i, f, d, s):
						if st.delta(i, f, d, s, -1) < -improveEps {
							st.flip(i, f, d, s, -1)
							st.moves++
							improved = true
						}
					}
				}
			}
		}
	}

	// Hand a slot from one person to another; headcount is unchanged.
	for f := 0; f < p.horizon; f++ {
		if err := ctx.Err(); err != nil {
			return improved, err
		}
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if p.demand[f][d][s] == 0 {
					continue
				}
				for i := 0; i < p.staff; i++ {
					if st.plan[i][f][d][s] == 0 {
						continue
					}
					for j := 0; j < p.staff; j++ {
						if j == i || !st.canAdd(j, f, d, s) {
							continue
						}
						if st.pair([4]int{i, f, d, s}, [4]int{j, f, d, s}, -1, 1) {
							improved = true
							break
						}
					}
				}
			}
		}
	}

	// Move one person's hour to another slot in the same week.
	for i := 0; i < p.staff; i++ {
		if err := ctx.Err(); err != nil {
			return improved, err
		}
		for f := 0; f < p.horizon; f++ {
			for a := 0; a < grid.Cells; a++ {
				ad, as := a/grid.Slots, a%grid.Slots
				if !st.canDrop(i, f, ad, as) {
					continue
				}
				for b := 0; b < grid.Cells; b++ {
					bd, bs := b/grid.Slots, b%grid.Slots
					if st.plan[i][f][bd][bs] == 1 || p.demand[f][bd][bs] == 0 {
						continue
					}
					if st.pair([4]int{i, f, ad, as}, [4]int{i, f, bd, bs}, -1, 1) {
						improved = true
						break
					}
				}
			}
		}
	}

	if p.horizon == 1 || p.cohort == 0 {
		return improved, nil
	}
	// Week-0 moves carried into later weeks, for forward consistency.
	for i := 0; i < p.staff; i++ {
		if err := ctx.Err(); err != nil {
			return improved, err
		}
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if p.demand[0][d][s] == 0 {
					continue
				}
				if i < p.cohort {
					switch {
					case st.canAdd(i, 0, d, s):
						improved = st.align(i, d, s, 1) || improved
					case st.canDrop(i, 0, d, s):
						improved = st.align(i, d, s, -1) || improved
					}
				}
				if st.plan[i][0][d][s] == 0 {
					continue
				}
				for k := 0; k < p.staff; k++ {
					if k == i || (i >= p.cohort && k >= p.cohort) || !st.canAdd(k, 0, d, s) {
						continue
					}
					if st.alignHandOver(i, k, d, s) {
						improved = true
						break
					}
				}
			}
		}
	}
	return improved, nil
}

// feasible reports the first hard constraint the current plan breaks.
func (st *search) feasible() error {
	p := st.p
	for i := 0; i < p.staff; i++ {
		for f := 0; f < p.horizon; f++ {
			if st.hours[i][f] > p.capacity[i] {
				return &InvariantError{Reason: "weekly cap exceeded", Staff: i, Week: f}
			}
		}
	}
	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				c, dem := st.count[f][d][s], p.demand[f][d][s]
				if dem == 0 && c > 0 {
					return &InvariantError{Reason: "assigned to a slot without demand", Staff: -1, Week: f}
				}
				if c < p.lower[f][d][s] {
					return &InvariantError{Reason: "coverage below bound", Staff: -1, Week: f}
				}
			}
		}
	}
	return nil
}
