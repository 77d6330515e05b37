// Package ingest reads availability form responses and office-hour demand
// from spreadsheets and turns them into validated rows and demand grids.
package ingest

import (
	"context"
	"fmt"

	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Source returns raw cell values, one slice per row.
type Source interface {
	// Availability includes the header row.
	Availability(ctx context.Context) ([][]string, error)
	// Demand starts below the header row.
	Demand(ctx context.Context) ([][]string, error)
}

// Snapshot is everything read from the sources for one run.
type Snapshot struct {
	Rows   []roster.AvailabilityRow
	Demand []grid.Grid
}

// Load reads, parses and validates both sheets. Any error means nothing
// downstream should change.
func Load(ctx context.Context, src Source, weeksTotal int) (*Snapshot, error) {
	rawRows, err := src.Availability(ctx)
	if err != nil {
		return nil, fmt.Errorf("read availability: %w", err)
	}
	rows, err := ParseAvailability(rawRows)
	if err != nil {
		return nil, fmt.Errorf("parse availability: %w", err)
	}
	if err := roster.ValidateRows(rows); err != nil {
		return nil, fmt.Errorf("validate availability: %w", err)
	}

	rawDemand, err := src.Demand(ctx)
	if err != nil {
		return nil, fmt.Errorf("read demand: %w", err)
	}
	demand, err := ParseDemand(rawDemand, weeksTotal)
	if err != nil {
		return nil, fmt.Errorf("parse demand: %w", err)
	}
	return &Snapshot{Rows: rows, Demand: demand}, nil
}
