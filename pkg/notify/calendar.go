package notify

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// EventTemplate is the fixed text of every office-hour event.
type EventTemplate struct {
	Summary     string
	Location    string
	Description string
	TimeZone    string
}

// CalendarSink creates one event per block on a Google calendar and
// invites the staff member.
type CalendarSink struct {
	srv        *calendar.Service
	calendarID string
	tmpl       EventTemplate
	loc        *time.Location
}

func NewCalendarSink(ctx context.Context, calendarID string, tmpl EventTemplate, opts ...option.ClientOption) (*CalendarSink, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	loc, err := time.LoadLocation(tmpl.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", tmpl.TimeZone, err)
	}
	opts = append(opts, option.WithScopes(calendar.CalendarEventsScope))
	srv, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return &CalendarSink{srv: srv, calendarID: calendarID, tmpl: tmpl, loc: loc}, nil
}

// Events builds the calendar events for one assignment without sending them.
func Events(email string, assignment grid.Grid, weekStart time.Time, tmpl EventTemplate, loc *time.Location) []*calendar.Event {
	var out []*calendar.Event
	for _, b := range Blocks(assignment) {
		start, end := b.Span(weekStart, loc)
		out = append(out, &calendar.Event{
			Summary:     tmpl.Summary,
			Location:    tmpl.Location,
			Description: tmpl.Description,
			Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339), TimeZone: tmpl.TimeZone},
			End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339), TimeZone: tmpl.TimeZone},
			Attendees:   []*calendar.EventAttendee{{Email: email}},
			Reminders:   &calendar.EventReminders{UseDefault: true},
		})
	}
	return out
}

func (s *CalendarSink) Notify(ctx context.Context, email string, assignment grid.Grid, weekStart time.Time) error {
	for _, ev := range Events(email, assignment, weekStart, s.tmpl, s.loc) {
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		_, err := s.srv.Events.Insert(s.calendarID, ev).SendUpdates("all").Context(callCtx).Do()
		cancel()
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.Start.DateTime, err)
		}
	}
	return nil
}
