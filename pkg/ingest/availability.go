package ingest

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/arnavshah/oh-scheduler-go/internal/roster"
	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// Column layout of the availability form, starting at the email column.
const (
	colEmail = iota
	colRole
	colTotalHours
	colSemestersOnStaff
	colSemestersAsAI
	colWeeklyTarget
	colPreferredContiguous
	colFirstRating

	availabilityColumns = colFirstRating + grid.Cells
)

var availabilityHeaders = [...]string{
	colEmail:               "email",
	colRole:                "role",
	colTotalHours:          "total weekly hours",
	colSemestersOnStaff:    "semesters on staff",
	colSemestersAsAI:       "semesters as AI",
	colWeeklyTarget:        "weekly office hours",
	colPreferredContiguous: "preferred contiguous hours",
}

// ExtractPreference reads the leading digit of a preference cell such as
// "3 - I'd be ok with this".
func ExtractPreference(cell string) (int, bool) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return 0, false
	}
	r := rune(cell[0])
	if !unicode.IsDigit(r) {
		return 0, false
	}
	return int(r - '0'), true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// ParseAvailability converts form responses to rows. The first row is the
// header and is skipped. Values are only parsed here; range checks live in
// roster.ValidateRows.
func ParseAvailability(values [][]string) ([]roster.AvailabilityRow, error) {
	if len(values) < 2 {
		return nil, ErrNoData
	}
	const sheet = "availability"

	rows := make([]roster.AvailabilityRow, 0, len(values)-1)
	for n, raw := range values[1:] {
		sheetRow := n + 2
		if len(raw) < availabilityColumns {
			return nil, &CellError{Sheet: sheet, Row: sheetRow, Column: "row", Value: strconv.Itoa(len(raw)),
				Reason: "expected " + strconv.Itoa(availabilityColumns) + " columns"}
		}

		ints := [colFirstRating]int{}
		for _, col := range []int{colTotalHours, colSemestersOnStaff, colSemestersAsAI, colWeeklyTarget, colPreferredContiguous} {
			v, err := strconv.Atoi(cell(raw, col))
			if err != nil {
				return nil, &CellError{Sheet: sheet, Row: sheetRow, Column: availabilityHeaders[col], Value: cell(raw, col), Reason: "not an integer"}
			}
			ints[col] = v
		}

		var ratings grid.Grid
		for i := 0; i < grid.Cells; i++ {
			col := colFirstRating + i
			v, ok := ExtractPreference(cell(raw, col))
			if !ok {
				return nil, &CellError{Sheet: sheet, Row: sheetRow,
					Column: grid.DayNames[i/grid.Slots] + " " + grid.SlotLabel(i%grid.Slots),
					Value:  cell(raw, col), Reason: "must start with a number between 1 and 5"}
			}
			ratings[i/grid.Slots][i%grid.Slots] = v
		}

		rows = append(rows, roster.AvailabilityRow{
			Email:                    roster.NormalizeEmail(cell(raw, colEmail)),
			Role:                     cell(raw, colRole),
			TotalWeeklyHours:         ints[colTotalHours],
			SemestersOnStaff:         ints[colSemestersOnStaff],
			SemestersAsAI:            ints[colSemestersAsAI],
			WeeklyTargetHours:        ints[colWeeklyTarget],
			PreferredContiguousHours: ints[colPreferredContiguous],
			Ratings:                  ratings,
		})
	}
	return rows, nil
}
