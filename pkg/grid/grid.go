package grid

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// Days is the number of weekdays in a schedule week (Monday..Friday)
	Days = 5
	// Slots is the number of hourly slots per day, 9:00 AM through 8:00 PM starts
	Slots = 12
	// Cells is the number of slots in a week
	Cells = Days * Slots

	// FirstHour is the wall-clock hour the first slot starts at
	FirstHour = 9

	// Unavailable is the preference rating meaning the slot cannot be worked
	Unavailable = 5
	// MinRating is the best preference rating
	MinRating = 1
)

// DayNames are the weekday labels in grid order
var DayNames = [Days]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// ErrBadRating is returned when a preference rating is outside 1..5
var ErrBadRating = errors.New("rating must be an integer between 1 and 5")

// Grid is a day x hour-slot matrix. Depending on context it holds
// preference ratings, demand headcounts or 0/1 assignments.
type Grid [Days][Slots]int

// FromRatings builds a rating grid from 60 values in row-major (day, slot) order.
func FromRatings(values []int) (Grid, error) {
	var g Grid
	if len(values) != Cells {
		return g, fmt.Errorf("expected %d ratings, got %d", Cells, len(values))
	}
	for i, v := range values {
		if v < MinRating || v > Unavailable {
			return g, fmt.Errorf("slot %d: %w (got %d)", i, ErrBadRating, v)
		}
		g[i/Slots][i%Slots] = v
	}
	return g, nil
}

// Flatten returns the grid in row-major order.
func (g Grid) Flatten() []int {
	out := make([]int, 0, Cells)
	for d := 0; d < Days; d++ {
		out = append(out, g[d][:]...)
	}
	return out
}

// Sum adds up every cell.
func (g Grid) Sum() int {
	total := 0
	for d := 0; d < Days; d++ {
		for s := 0; s < Slots; s++ {
			total += g[d][s]
		}
	}
	return total
}

// Available converts a rating grid into a 0/1 grid where 1 means the rating is 1-4.
func (g Grid) Available() Grid {
	var out Grid
	for d := 0; d < Days; d++ {
		for s := 0; s < Slots; s++ {
			if g[d][s] != Unavailable {
				out[d][s] = 1
			}
		}
	}
	return out
}

// IsBinary reports whether every cell is 0 or 1.
func (g Grid) IsBinary() bool {
	for d := 0; d < Days; d++ {
		for s := 0; s < Slots; s++ {
			if g[d][s] != 0 && g[d][s] != 1 {
				return false
			}
		}
	}
	return true
}

// LongestRun returns the longest run of consecutive non-zero slots in any single day.
func (g Grid) LongestRun() int {
	best := 0
	for d := 0; d < Days; d++ {
		run := 0
		for s := 0; s < Slots; s++ {
			if g[d][s] != 0 {
				run++
				if run > best {
					best = run
				}
			} else {
				run = 0
			}
		}
	}
	return best
}

// SlotLabel renders a slot start as "9:00 AM".
func SlotLabel(slot int) string {
	hour := FirstHour + slot
	suffix := "AM"
	if hour >= 12 {
		suffix = "PM"
	}
	if hour > 12 {
		hour -= 12
	}
	return fmt.Sprintf("%d:00 %s", hour, suffix)
}

// String renders the grid one day per line.
func (g Grid) String() string {
	var b strings.Builder
	for d := 0; d < Days; d++ {
		b.WriteString(DayNames[d][:3])
		for s := 0; s < Slots; s++ {
			fmt.Fprintf(&b, " %d", g[d][s])
		}
		if d < Days-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
