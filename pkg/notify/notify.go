// Package notify turns weekly assignments into calendar events.
package notify

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Sink delivers one person's assignment for the week starting on weekStart.
type Sink interface {
	Notify(ctx context.Context, email string, assignment grid.Grid, weekStart time.Time) error
}

// Block is a run of consecutive assigned slots on one day: [Start, End).
type Block struct {
	Day   int
	Start int
	End   int
}

func (b Block) Hours() int { return b.End - b.Start }

// Blocks splits an assignment into one block per contiguous run.
func Blocks(assignment grid.Grid) []Block {
	var out []Block
	for d := 0; d < grid.Days; d++ {
		s := 0
		for s < grid.Slots {
			if assignment[d][s] != 1 {
				s++
				continue
			}
			start := s
			for s < grid.Slots && assignment[d][s] == 1 {
				s++
			}
			out = append(out, Block{Day: d, Start: start, End: s})
		}
	}
	return out
}

// Span returns the wall-clock start and end of a block in loc.
func (b Block) Span(weekStart time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := weekStart.Date()
	day := time.Date(y, m, d+b.Day, 0, 0, 0, 0, loc)
	return day.Add(time.Duration(grid.FirstHour+b.Start) * time.Hour),
		day.Add(time.Duration(grid.FirstHour+b.End) * time.Hour)
}

// NearestFutureMonday returns date itself when it is a Monday, otherwise
// the following Monday.
func NearestFutureMonday(date time.Time) time.Time {
	offset := (int(time.Monday) - int(date.Weekday()) + 7) % 7
	return date.AddDate(0, 0, offset)
}

// WeekStart is the Monday a semester week begins on. startDate is the
// YYYY-MM-DD date the first scheduled week is anchored to.
func WeekStart(startDate string, week, weeksSkipped int) (time.Time, error) {
	d, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("start date %q is not YYYY-MM-DD: %w", startDate, err)
	}
	return NearestFutureMonday(d).AddDate(0, 0, 7*(week-weeksSkipped-1)), nil
}

// Dispatch notifies every staff member with at least one assigned slot,
// at most parallel at a time. It returns the first failure after all
// in-flight deliveries finish.
func Dispatch(ctx context.Context, sink Sink, emails []string, assignments []grid.Grid, weekStart time.Time, parallel int) (int, error) {
	if len(emails) != len(assignments) {
		return 0, fmt.Errorf("%d emails for %d assignments", len(emails), len(assignments))
	}
	if parallel < 1 {
		parallel = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	sent := 0
	for i, email := range emails {
		if assignments[i].Sum() == 0 {
			continue
		}
		sent++
		assignment := assignments[i]
		g.Go(func() error {
			if err := sink.Notify(gctx, email, assignment, weekStart); err != nil {
				return fmt.Errorf("notify %s: %w", email, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sent, err
	}
	return sent, nil
}
