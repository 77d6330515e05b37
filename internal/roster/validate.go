package roster

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func rowValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// RowError describes why a single availability row was rejected.
type RowError struct {
	Row    int
	Email  string
	Reason string
}

func (e *RowError) Error() string {
	if e.Email == "" {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return fmt.Sprintf("row %d (%s): %s", e.Row, e.Email, e.Reason)
}

func (e *RowError) Unwrap() error { return ErrInvalidRow }

var fieldMessages = map[string]string{
	"Email":                    "invalid email",
	"WeeklyTargetHours":        "weekly target hours must be between 0 and total weekly hours",
	"PreferredContiguousHours": "preferred contiguous hours must be between 0 and weekly target hours",
	"TotalWeeklyHours":         "total weekly hours must not be negative",
	"SemestersOnStaff":         "semesters on staff must not be negative",
	"SemestersAsAI":            "semesters as AI must not be negative",
}

// ValidateRow checks a single row. index is only used for error reporting.
func ValidateRow(index int, row AvailabilityRow) error {
	if err := rowValidator().Struct(row); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			msg, ok := fieldMessages[ve[0].Field()]
			if !ok {
				msg = fmt.Sprintf("%s failed %s", ve[0].Field(), ve[0].Tag())
			}
			return &RowError{Row: index, Email: row.Email, Reason: msg}
		}
		return &RowError{Row: index, Email: row.Email, Reason: err.Error()}
	}

	for d := 0; d < grid.Days; d++ {
		for s := 0; s < grid.Slots; s++ {
			v := row.Ratings[d][s]
			if v < grid.MinRating || v > grid.Unavailable {
				return &RowError{Row: index, Email: row.Email,
					Reason: fmt.Sprintf("rating for %s %s must be between 1 and 5, got %d", grid.DayNames[d], grid.SlotLabel(s), v)}
			}
		}
	}

	if available := row.Ratings.Available().Sum(); available < row.WeeklyTargetHours {
		return &RowError{Row: index, Email: row.Email,
			Reason: fmt.Sprintf("only %d available slots for a weekly target of %d", available, row.WeeklyTargetHours)}
	}
	return nil
}

// ValidateRows checks every row and returns all failures joined together.
func ValidateRows(rows []AvailabilityRow) error {
	var errs []error
	for i, row := range rows {
		if err := ValidateRow(i, row); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LatestByEmail keeps the last row per email, preserving first-seen order.
func LatestByEmail(rows []AvailabilityRow) []AvailabilityRow {
	pos := make(map[string]int, len(rows))
	var out []AvailabilityRow
	for _, row := range rows {
		if i, ok := pos[row.Email]; ok {
			out[i] = row
			continue
		}
		pos[row.Email] = len(out)
		out = append(out, row)
	}
	return out
}
