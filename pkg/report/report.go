// Package report summarises a solved week: who works how much, which
// slots stayed understaffed and why, and how evenly load was spread.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Staff is one person's inputs and result for the week.
type Staff struct {
	Email         string    `json:"email"`
	Availability  grid.Grid `json:"availability"`
	WeeklyTarget  int       `json:"weekly_target"`
	MaxContiguous int       `json:"max_contiguous"`
	Assignment    grid.Grid `json:"assignment"`
}

// StaffHours is the per-person line of a report.
type StaffHours struct {
	Email         string `json:"email"`
	AssignedHours int    `json:"assigned_hours"`
	WeeklyTarget  int    `json:"weekly_target"`
	LongestRun    int    `json:"longest_run"`
	MaxContiguous int    `json:"max_contiguous"`
}

// Conflict explains why a slot ended up with fewer staff than demanded.
type Conflict struct {
	Day      string   `json:"day"`
	Slot     string   `json:"slot"`
	Demand   int      `json:"demand"`
	Assigned int      `json:"assigned"`
	Reasons  []string `json:"reasons"`
}

// Report is the diagnostic view of one week's assignment.
type Report struct {
	Week          int          `json:"week"`
	TotalDemand   int          `json:"total_demand"`
	TotalAssigned int          `json:"total_assigned"`
	FairnessScore float64      `json:"fairness_score"`
	Staff         []StaffHours `json:"staff"`
	Understaffed  []Conflict   `json:"understaffed,omitempty"`
	// LongRuns lists staff whose longest block exceeds their contiguous
	// ceiling. The ceiling is not enforced by the optimizer.
	LongRuns []string `json:"long_runs,omitempty"`
}

// Build assembles the report. maxOverage is how far above target the
// optimizer may schedule someone.
func Build(week int, demand grid.Grid, staff []Staff, maxOverage int) *Report {
	r := &Report{Week: week, TotalDemand: demand.Sum()}

	var count grid.Grid
	for _, st := range staff {
		hours := st.Assignment.Sum()
		run := st.Assignment.LongestRun()
		r.TotalAssigned += hours
		r.Staff = append(r.Staff, StaffHours{
			Email:         st.Email,
			AssignedHours: hours,
			WeeklyTarget:  st.WeeklyTarget,
			LongestRun:    run,
			MaxContiguous: st.MaxContiguous,
		})
		if st.MaxContiguous > 0 && run > st.MaxContiguous {
			r.LongRuns = append(r.LongRuns, st.Email)
		}
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				count[d][s] += st.Assignment[d][s]
			}
		}
	}

	for d := 0; d < grid.Days; d++ {
		for s := 0; s < grid.Slots; s++ {
			if count[d][s] >= demand[d][s] {
				continue
			}
			r.Understaffed = append(r.Understaffed, Conflict{
				Day:      grid.DayNames[d],
				Slot:     grid.SlotLabel(s),
				Demand:   demand[d][s],
				Assigned: count[d][s],
				Reasons:  reasons(staff, d, s, maxOverage),
			})
		}
	}

	r.FairnessScore = FairnessScore(staff)
	return r
}

// reasons counts why the people not working a slot could not take it.
func reasons(staff []Staff, d, s, maxOverage int) []string {
	unavailable, atCap := 0, 0
	for _, st := range staff {
		if st.Assignment[d][s] == 1 {
			continue
		}
		if st.Availability[d][s] == grid.Unavailable {
			unavailable++
			continue
		}
		if st.Assignment.Sum() >= st.WeeklyTarget+maxOverage {
			atCap++
		}
	}

	var out []string
	if unavailable > 0 {
		out = append(out, fmt.Sprintf("%d staff were unavailable", unavailable))
	}
	if atCap > 0 {
		out = append(out, fmt.Sprintf("%d staff were at their weekly cap", atCap))
	}
	if len(out) == 0 {
		out = append(out, "remaining staff were cheaper to place elsewhere")
	}
	return out
}

// FairnessScore returns a percentage (0-100) of how evenly hours track
// targets. 100 means everyone got the same share of their target.
func FairnessScore(staff []Staff) float64 {
	var shares []float64
	for _, st := range staff {
		if st.WeeklyTarget > 0 {
			shares = append(shares, float64(st.Assignment.Sum())/float64(st.WeeklyTarget))
		}
	}
	if len(shares) == 0 {
		return 100.0
	}

	var sum float64
	for _, v := range shares {
		sum += v
	}
	if sum == 0 {
		return 100.0 // nobody working is perfectly even
	}
	mean := sum / float64(len(shares))

	var varianceSum float64
	for _, v := range shares {
		diff := v - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(shares)))

	score := (1.0 - stdDev/mean) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}

// WriteText renders the report as aligned columns.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Week %d\tdemand %d\tassigned %d\tfairness %.1f%%\n", r.Week, r.TotalDemand, r.TotalAssigned, r.FairnessScore)
	fmt.Fprintln(tw, "EMAIL\tHOURS\tTARGET\tLONGEST\tCEILING")
	for _, s := range r.Staff {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", s.Email, s.AssignedHours, s.WeeklyTarget, s.LongestRun, s.MaxContiguous)
	}
	for _, c := range r.Understaffed {
		fmt.Fprintf(tw, "understaffed\t%s %s\t%d/%d\t%v\n", c.Day, c.Slot, c.Assigned, c.Demand, c.Reasons)
	}
	return tw.Flush()
}
