package optimizer

import (
	"fmt"
	"math"
	"time"

	"github.com/arnavshah/oh-scheduler-go/pkg/grid"
)

// ConfigVersion identifies the objective definition below. Bump it when a
// weight meaning or a term changes so stored run records stay comparable.
const ConfigVersion = 1

// maxExactVariables keeps exhaustive enumeration to about a billion steps.
const maxExactVariables = 30

// Weights scale the five objective terms.
type Weights struct {
	WeeklyDeviation  float64 `yaml:"weekly_deviation" json:"weekly_deviation"`
	HorizonOvershoot float64 `yaml:"horizon_overshoot" json:"horizon_overshoot"`
	Coverage         float64 `yaml:"coverage" json:"coverage"`
	Displeasure      float64 `yaml:"displeasure" json:"displeasure"`
	Consistency      float64 `yaml:"consistency" json:"consistency"`
}

// Config holds every tunable of the optimizer.
type Config struct {
	Version int `yaml:"version" json:"version"`

	// Lookahead is the planning horizon in weeks. It is shortened to the
	// number of weeks left in the semester.
	Lookahead int `yaml:"lookahead_weeks" json:"lookahead_weeks"`

	Weights Weights `yaml:"weights" json:"weights"`

	// Displeasure maps a rating (index 1..5) to a per-slot cost. Index 0 is unused.
	Displeasure [grid.Unavailable + 1]float64 `yaml:"displeasure" json:"displeasure"`

	// Decay is the rate of exp(-Decay * age) used by the consistency term.
	Decay float64 `yaml:"decay" json:"decay"`

	// MaxUnderstaffed is how far below demand a slot may fall.
	MaxUnderstaffed int `yaml:"max_understaffed" json:"max_understaffed"`
	// MaxWeeklyOverage is how far above the weekly target a person may be scheduled.
	MaxWeeklyOverage int `yaml:"max_weekly_overage" json:"max_weekly_overage"`

	TimeLimit time.Duration `yaml:"time_limit" json:"time_limit"`
	MaxPasses int           `yaml:"max_passes" json:"max_passes"`

	// ExactVariables is the largest number of decision variables for which
	// every plan is enumerated after the search.
	ExactVariables int `yaml:"exact_variables" json:"exact_variables"`
}

// DefaultConfig returns the production weights.
func DefaultConfig() Config {
	return Config{
		Version:   ConfigVersion,
		Lookahead: 6,
		Weights: Weights{
			WeeklyDeviation:  400,
			HorizonOvershoot: 50,
			Coverage:         700,
			Displeasure:      50,
			Consistency:      100,
		},
		Displeasure:      [grid.Unavailable + 1]float64{0, 0, 2, 8, 16, 1e8},
		Decay:            0.2,
		MaxUnderstaffed:  2,
		MaxWeeklyOverage: 1,
		TimeLimit:        2 * time.Minute,
		MaxPasses:        500,
		ExactVariables:   20,
	}
}

func (c Config) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("%w: optimizer config version %d, expected %d", ErrInvalidConfig, c.Version, ConfigVersion)
	}
	if c.Lookahead < 1 {
		return fmt.Errorf("%w: lookahead must be at least 1", ErrInvalidConfig)
	}
	if c.MaxUnderstaffed < 0 || c.MaxWeeklyOverage < 0 {
		return fmt.Errorf("%w: caps must not be negative", ErrInvalidConfig)
	}
	if c.TimeLimit <= 0 || c.MaxPasses < 1 {
		return fmt.Errorf("%w: time limit and max passes must be positive", ErrInvalidConfig)
	}
	if c.ExactVariables < 0 || c.ExactVariables > maxExactVariables {
		return fmt.Errorf("%w: exact_variables must be in [0, %d]", ErrInvalidConfig, maxExactVariables)
	}
	for r := grid.MinRating; r <= grid.Unavailable; r++ {
		if c.Displeasure[r] < 0 {
			return fmt.Errorf("%w: displeasure for rating %d is negative", ErrInvalidConfig, r)
		}
	}
	return nil
}

func (c Config) decayWeight(age int) float64 {
	return math.Exp(-c.Decay * float64(age))
}
