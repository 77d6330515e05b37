package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Status is the outcome of a solve. StatusSolved is a plan proven optimal.
// StatusFeasible meets every hard constraint, but the search stopped at a
// local optimum above the lower bound.
type Status string

const (
	StatusSolved       Status = "solved"
	StatusFeasible     Status = "feasible"
	StatusInfeasible   Status = "infeasible"
	StatusNotConverged Status = "not_converged"
)

// Result is a schedule meeting every hard constraint. Assignment holds the
// immediate week only; Plan keeps the full lookahead for diagnostics.
//
// Gap is the objective minus a lower bound: the seed flow's value without
// forward consistency, so it is exact up to the flow's cost rounding to
// 1/costScale. Exhaustive plans have a gap of 0.
type Result struct {
	Status     Status        `json:"status"`
	Assignment []grid.Grid   `json:"assignment"`
	Plan       [][]grid.Grid `json:"-"`
	Horizon    int           `json:"horizon"`
	Objective  Breakdown     `json:"objective"`
	Gap        float64       `json:"gap"`
	Exhaustive bool          `json:"exhaustive"`
	Passes     int           `json:"passes"`
	Moves      int           `json:"moves"`
	Elapsed    time.Duration `json:"elapsed"`
}

// OK reports whether the result carries a usable schedule.
func (s Status) OK() bool { return s == StatusSolved || s == StatusFeasible }

// StatusOf maps a Solve error to the status reported to callers. A nil
// error maps to StatusSolved; use Result.Status to tell it from
// StatusFeasible.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusSolved
	case errors.Is(err, ErrInfeasible):
		return StatusInfeasible
	case errors.Is(err, ErrNotConverged):
		return StatusNotConverged
	default:
		return ""
	}
}

// Solve plans the lookahead and returns the assignment for its first week.
//
// The seed phase solves every term except forward consistency exactly, which
// also decides feasibility and gives the lower bound. A local search then
// improves the full objective with single and multi-week moves. Problems
// with at most cfg.ExactVariables decision variables are then enumerated in
// full. Running out of cfg.TimeLimit or cfg.MaxPasses returns a
// *NotConvergedError and no schedule, and so does a deadline on ctx.
// Cancelling ctx returns a wrapped context.Canceled.
func Solve(ctx context.Context, in *Inputs, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, cfg.TimeLimit)
	defer cancel()

	// Deadlines, ours or the caller's, mean the budget ran out. A cancel
	// means the caller gave up.
	stopped := func(phase string, passes int, err error) error {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return &NotConvergedError{Phase: phase, Passes: passes, Elapsed: time.Since(start)}
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("solve cancelled: %w", err)
		}
		return err
	}

	p := newProblem(in, cfg)
	plan, err := p.seed(runCtx)
	if err != nil {
		return nil, stopped("seed", 0, err)
	}
	bound := p.evaluate(in, plan).Total - p.forwardPenalty(plan)

	st := newSearch(p, plan)
	passes := 0
	for {
		if passes == cfg.MaxPasses {
			return nil, &NotConvergedError{Phase: "search", Passes: passes, Elapsed: time.Since(start)}
		}
		passes++
		improved, err := st.pass(runCtx)
		if err != nil {
			return nil, stopped("search", passes, err)
		}
		if !improved {
			break
		}
	}
	if err := st.feasible(); err != nil {
		return nil, err
	}

	best, objective := st.plan, p.evaluate(in, st.plan)
	exhaustive := false
	if vars := p.variables(); len(vars) <= cfg.ExactVariables {
		exact, err := p.exhaustive(runCtx, in, vars)
		if err != nil {
			return nil, stopped("exact", passes, err)
		}
		if exact != nil {
			if o := p.evaluate(in, exact); o.Total < objective.Total {
				best, objective = exact, o
			}
		}
		exhaustive = true
	}
	if err := newSearch(p, best).feasible(); err != nil {
		return nil, err
	}

	gap := math.Max(objective.Total-bound, 0)
	status := StatusFeasible
	if exhaustive {
		gap = 0
	}
	if gap <= improveEps {
		status = StatusSolved
	}

	res := &Result{
		Status:     status,
		Assignment: make([]grid.Grid, p.staff),
		Plan:       best,
		Horizon:    p.horizon,
		Objective:  objective,
		Gap:        gap,
		Exhaustive: exhaustive,
		Passes:     passes,
		Moves:      st.moves,
		Elapsed:    time.Since(start),
	}
	for i := range res.Assignment {
		res.Assignment[i] = best[i][0]
	}
	return res, nil
}
