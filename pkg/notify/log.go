package notify

import (
	"context"
	"time"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
	"github.com/arnavshah/oh-scheduler-go/pkg/logger"
)

// LogSink only logs what would be sent. Used for dry runs.
type LogSink struct {
	Log *logger.Logger
}

func (s LogSink) Notify(_ context.Context, email string, assignment grid.Grid, weekStart time.Time) error {
	for _, b := range Blocks(assignment) {
		s.Log.Info("office hours",
			"email", email,
			"week_start", weekStart.Format("2006-01-02"),
			"day", grid.DayNames[b.Day],
			"start", grid.SlotLabel(b.Start),
			"end", grid.SlotLabel(b.End),
		)
	}
	return nil
}
