package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Ranges of the form responses and demand tabs.
const (
	AvailabilityRange = "Form Responses 1!B1:BP"
	DemandRange       = "Demand!A2:E"
)

// SheetsSource reads both tabs through the Sheets API.
type SheetsSource struct {
	srv            *sheets.Service
	availabilityID string
	demandID       string
}

// NewSheetsSource takes spreadsheet IDs or full links.
func NewSheetsSource(ctx context.Context, availability, demand string, opts ...option.ClientOption) (*SheetsSource, error) {
	availabilityID, err := SpreadsheetID(availability)
	if err != nil {
		return nil, err
	}
	demandID, err := SpreadsheetID(demand)
	if err != nil {
		return nil, err
	}
	opts = append(opts, option.WithScopes(sheets.SpreadsheetsReadonlyScope))
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}
	return &SheetsSource{srv: srv, availabilityID: availabilityID, demandID: demandID}, nil
}

func (s *SheetsSource) Availability(ctx context.Context) ([][]string, error) {
	return s.values(ctx, s.availabilityID, AvailabilityRange)
}

func (s *SheetsSource) Demand(ctx context.Context) ([][]string, error) {
	return s.values(ctx, s.demandID, DemandRange)
}

func (s *SheetsSource) values(ctx context.Context, id, rng string) ([][]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := s.srv.Spreadsheets.Values.Get(id, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets %s %s: %w", id, rng, err)
	}
	if len(resp.Values) == 0 {
		return nil, fmt.Errorf("sheets %s %s: %w", id, rng, ErrNoData)
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

// SpreadsheetID accepts a bare ID or a docs.google.com/spreadsheets/d/<id>/... link.
func SpreadsheetID(link string) (string, error) {
	link = strings.TrimSpace(link)
	if link == "" {
		return "", fmt.Errorf("spreadsheet link is empty")
	}
	if !strings.Contains(link, "/") {
		return link, nil
	}
	parts := strings.Split(link, "/")
	isSheets := false
	for _, p := range parts {
		if p == "docs.google.com" {
			isSheets = true
		}
	}
	if isSheets {
		for i, p := range parts {
			if p == "d" && i > 0 && i+1 < len(parts) && parts[i-1] == "spreadsheets" && parts[i+1] != "" {
				return parts[i+1], nil
			}
		}
	}
	return "", fmt.Errorf("not a Google Sheets URL: %s", link)
}
