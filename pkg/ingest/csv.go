package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// CSVSource reads exports of the two sheets. Both files keep their header row.
type CSVSource struct {
	AvailabilityPath string
	DemandPath       string
}

func (s CSVSource) Availability(ctx context.Context) ([][]string, error) {
	return readCSV(ctx, s.AvailabilityPath)
}

func (s CSVSource) Demand(ctx context.Context) ([][]string, error) {
	records, err := readCSV(ctx, s.DemandPath)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", s.DemandPath, ErrNoData)
	}
	return records[1:], nil
}

func readCSV(ctx context.Context, path string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV reads every record, allowing ragged rows like a sheet export.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	var out [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		out = append(out, record)
	}
	return out, nil
}
