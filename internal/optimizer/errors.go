package optimizer

import (
	"errors"
	"fmt"
	"time"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

var (
	// ErrInvalidInputs is returned when the input bundle has inconsistent shapes.
	ErrInvalidInputs = errors.New("invalid optimizer inputs")

	// ErrInvalidConfig is returned for unusable optimizer settings.
	ErrInvalidConfig = errors.New("invalid optimizer config")

	// ErrInfeasible means no assignment satisfies the hard constraints.
	ErrInfeasible = errors.New("schedule is infeasible")

	// ErrNotConverged means the time or pass budget ran out before the
	// search settled. No assignment is returned in that case.
	ErrNotConverged = errors.New("solver did not converge")
)

// InfeasibleError names the first slot that cannot be covered.
type InfeasibleError struct {
	Week     int // offset into the lookahead, 0 is the week being scheduled
	Day      int
	Slot     int
	Required int
	Covered  int
}

func (e *InfeasibleError) Error() string {
	return fmt.Sprintf("%s: lookahead week %d %s %s needs %d staff but only %d can be placed",
		ErrInfeasible, e.Week, grid.DayNames[e.Day], grid.SlotLabel(e.Slot), e.Required, e.Covered)
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasible }

// NotConvergedError reports how far the search got.
type NotConvergedError struct {
	Phase   string
	Passes  int
	Elapsed time.Duration
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("%s: stopped during %s after %d passes (%s)", ErrNotConverged, e.Phase, e.Passes, e.Elapsed)
}

func (e *NotConvergedError) Unwrap() error { return ErrNotConverged }

// InvariantError is a broken hard constraint found in a finished plan. It
// indicates a solver bug rather than bad inputs.
type InvariantError struct {
	Reason string
	Staff  int // -1 when the violation is per slot
	Week   int
}

func (e *InvariantError) Error() string {
	if e.Staff < 0 {
		return fmt.Sprintf("optimizer invariant: %s in lookahead week %d", e.Reason, e.Week)
	}
	return fmt.Sprintf("optimizer invariant: %s for staff %d in lookahead week %d", e.Reason, e.Staff, e.Week)
}
