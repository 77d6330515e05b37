package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

var (
	weekListPattern = regexp.MustCompile(`^\d+(\s*,\s*\d+)*$`)
	countPattern    = regexp.MustCompile(`^\d+$`)
)

func dayIndex(name string) (int, bool) {
	for i, d := range grid.DayNames {
		if d == name {
			return i, true
		}
	}
	return 0, false
}

// slotIndex maps "9:00 AM" style labels to slots. 9:00 PM maps to Slots,
// which is only valid as an end time.
func slotIndex(label string) (int, bool) {
	for s := 0; s <= grid.Slots; s++ {
		if grid.SlotLabel(s) == label {
			return s, true
		}
	}
	return 0, false
}

// ParseDemand reads the demand sheet: weeks, day, start, end, headcount.
// Week lists and days are written once and left blank below, as merged
// cells export, so blanks carry the last value down. Every week, day and
// hour of the semester must appear exactly once.
func ParseDemand(values [][]string, weeksTotal int) ([]grid.Grid, error) {
	if len(values) == 0 {
		return nil, ErrNoData
	}
	const sheet = "demand"
	// The demand range starts below the header row.
	const firstRow = 2

	demand := make([]grid.Grid, weeksTotal)
	seen := make([][grid.Days][grid.Slots]bool, weeksTotal)

	var weeks []int
	day := -1
	for n, raw := range values {
		sheetRow := n + firstRow
		bad := func(column, value, reason string) error {
			return &CellError{Sheet: sheet, Row: sheetRow, Column: column, Value: value, Reason: reason}
		}

		if v := cell(raw, 0); v != "" {
			if !weekListPattern.MatchString(v) {
				return nil, bad("weeks", v, "expected a list like 2, 3, 4")
			}
			weeks = weeks[:0]
			for _, part := range strings.Split(v, ",") {
				w, _ := strconv.Atoi(strings.TrimSpace(part))
				if w < 1 || w > weeksTotal {
					return nil, bad("weeks", v, fmt.Sprintf("week %d is outside 1..%d", w, weeksTotal))
				}
				weeks = append(weeks, w)
			}
		}
		if weeks == nil {
			return nil, bad("weeks", "", "no week list above this row")
		}

		if v := cell(raw, 1); v != "" {
			d, ok := dayIndex(v)
			if !ok {
				return nil, bad("day", v, "expected Monday through Friday")
			}
			day = d
		}
		if day < 0 {
			return nil, bad("day", "", "no day above this row")
		}

		startLabel, endLabel := cell(raw, 2), cell(raw, 3)
		start, ok := slotIndex(startLabel)
		if !ok || start == grid.Slots {
			return nil, bad("start", startLabel, "must be an hour from 9:00 AM to 8:00 PM")
		}
		if end, ok := slotIndex(endLabel); !ok || end != start+1 {
			return nil, bad("end", endLabel, "must be one hour after the start")
		}

		countCell := cell(raw, 4)
		if !countPattern.MatchString(countCell) {
			return nil, bad("staff needed", countCell, "not a non-negative integer")
		}
		count, _ := strconv.Atoi(countCell)

		for _, w := range weeks {
			if seen[w-1][day][start] {
				return nil, bad("weeks", strconv.Itoa(w),
					fmt.Sprintf("week %d %s %s is already filled", w, grid.DayNames[day], startLabel))
			}
			seen[w-1][day][start] = true
			demand[w-1][day][start] = count
		}
	}

	for w := range seen {
		for d := 0; d < grid.Days; d++ {
			for s := 0; s < grid.Slots; s++ {
				if !seen[w][d][s] {
					return nil, fmt.Errorf("%w: no row for week %d %s %s", ErrIncompleteDemand, w+1, grid.DayNames[d], grid.SlotLabel(s))
				}
			}
		}
	}
	return demand, nil
}
