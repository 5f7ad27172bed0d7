package repo

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

const (
	DateLayout = "2006-01-02"

	MinDurationMinutes = 1
	MaxDurationMinutes = 300
	MinCalories        = 1
	MaxCalories        = 2000
	MinRating          = 1
	MaxRating          = 5
)

var ErrInvalidWorkout = errors.New("invalid workout")

// Workout is one logged exercise session of a user.
// Date carries day granularity only, see Day.
type Workout struct {
	ID              int       `json:"id"`
	UserID          int       `json:"userId"`
	WorkoutType     string    `json:"workoutType"`
	Date            time.Time `json:"workoutDate"`
	DurationMinutes int       `json:"durationMinutes"`
	Calories        int       `json:"calories"`
	Intensity       Intensity `json:"intensity"`
	Locations       []string  `json:"locations"`
	Rating          *int      `json:"rating,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Intensity can be one of:
//   - low
//   - medium
//   - high
type Intensity string

const (
	IntensityLow    Intensity = "low"
	IntensityMedium Intensity = "medium"
	IntensityHigh   Intensity = "high"
)

func (i Intensity) String() string {
	return string(i)
}

func (i Intensity) IsValid() bool {
	switch i {
	case IntensityLow,
		IntensityMedium,
		IntensityHigh:
		return true
	default:
		return false
	}
}

// Day strips the time of day, leaving the calendar date as UTC midnight.
// The calendar date is read in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date [%s]: %w", s, err)
	}
	return d, nil
}

// Validate reports every invalid field at once, wrapped in ErrInvalidWorkout.
func (w *Workout) Validate() error {
	var err error
	if strings.TrimSpace(w.WorkoutType) == "" {
		err = multierr.Append(err, errors.New("workout type is required"))
	}
	if w.DurationMinutes < MinDurationMinutes || w.DurationMinutes > MaxDurationMinutes {
		err = multierr.Append(err, fmt.Errorf(
			"duration must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes,
		))
	}
	if w.Calories < MinCalories || w.Calories > MaxCalories {
		err = multierr.Append(err, fmt.Errorf(
			"calories must be between %d and %d", MinCalories, MaxCalories,
		))
	}
	if w.Date.IsZero() {
		err = multierr.Append(err, errors.New("workout date is required"))
	}
	if !w.Intensity.IsValid() {
		err = multierr.Append(err, fmt.Errorf("invalid intensity [%s]", w.Intensity))
	}
	if w.Rating != nil && (*w.Rating < MinRating || *w.Rating > MaxRating) {
		err = multierr.Append(err, fmt.Errorf("rating must be between %d and %d", MinRating, MaxRating))
	}

	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidWorkout, err)
	}
	return nil
}
