package optimizer

import (
	"math"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Breakdown is the weighted value of each objective term.
type Breakdown struct {
	WeeklyDeviation  float64 `json:"weekly_deviation"`
	HorizonOvershoot float64 `json:"horizon_overshoot"`
	Coverage         float64 `json:"coverage"`
	Displeasure      float64 `json:"displeasure"`
	Consistency      float64 `json:"consistency"`
	Total            float64 `json:"total"`
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func posInt(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// evaluate scores a full plan. Constants dropped from the flow costs are
// included here, so the value matches the objective as written.
func (p *problem) evaluate(in *Inputs, plan [][]grid.Grid) Breakdown {
	var b Breakdown
	w := p.cfg.Weights
	counts := make([]grid.Grid, p.horizon)

	var t1, t2, t3 int
	var t5 float64
	for i := 0; i < p.staff; i++ {
		total := 0
		for f := 0; f < p.horizon; f++ {
			hours := plan[i][f].Sum()
			total += hours
			t1 += absInt(hours - p.target[i])
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					if plan[i][f][d][s] == 1 {
						counts[f][d][s]++
					}
				}
			}
		}
		t2 += posInt(total - p.budget[i])
	}
	for f := 0; f < p.horizon; f++ {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				t3 += absInt(counts[f][d][s] - p.demand[f][d][s])
			}
		}
	}

	var displeasure float64
	for i := 0; i < p.staff; i++ {
		for f := 0; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					if plan[i][f][d][s] == 1 {
						displeasure += p.cfg.Displeasure[in.Availability[i][d][s]]
					}
				}
			}
		}
	}

	for i := 0; i < p.cohort; i++ {
		current := plan[i][0]
		for k, week := range in.PastAssignments {
			weight := p.cfg.decayWeight(k+1) * damping(in.ChangedWeight[i])
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					t5 += float64(posInt(week[i][d][s]-current[d][s])) * weight
				}
			}
		}
		for f := 1; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					t5 += float64(posInt(current[d][s]-plan[i][f][d][s])) * p.forward[f]
				}
			}
		}
	}

	b.WeeklyDeviation = w.WeeklyDeviation * float64(t1)
	b.HorizonOvershoot = w.HorizonOvershoot * float64(t2)
	b.Coverage = w.Coverage * float64(t3)
	b.Displeasure = w.Displeasure * displeasure
	b.Consistency = w.Consistency * t5
	b.Total = b.WeeklyDeviation + b.HorizonOvershoot + b.Coverage + b.Displeasure + b.Consistency
	return b
}

// forwardPenalty is the weighted part of the consistency term comparing the
// week being scheduled with later lookahead weeks. The seed flow leaves it out.
func (p *problem) forwardPenalty(plan [][]grid.Grid) float64 {
	var t float64
	for i := 0; i < p.cohort; i++ {
		for f := 1; f < p.horizon; f++ {
			for d := 0; d < grid.Days; d++ {
				for s := 0; s < grid.Slots; s++ {
					t += float64(posInt(plan[i][0][d][s]-plan[i][f][d][s])) * p.forward[f]
				}
			}
		}
	}
	return p.cfg.Weights.Consistency * t
}

// damping scales backward consistency down as availability moves away
// from the previous week.
func damping(changed float64) float64 {
	return 1 - math.Min(math.Abs(changed), 1)
}
