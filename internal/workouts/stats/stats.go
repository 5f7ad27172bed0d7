// Package stats derives dashboard statistics from a user's workout log.
//
// Everything here is a pure function of the given workouts and reference
// date: no I/O, no state and no reads of the wall clock. Callers pass
// "today" explicitly, which keeps results replayable in tests.
package stats

import (
	"math"
	"sort"
	"time"

	"github.com/2beens/fitdash/internal/workouts/repo"
)

const (
	DefaultWeeklyGoal  = 4
	DefaultMonthlyGoal = 16
	DefaultWeekStart   = time.Monday

	// ActivityDays is the length of the recent activity series.
	ActivityDays = 7
)

type Goals struct {
	Weekly    int
	Monthly   int
	WeekStart time.Weekday
}

func DefaultGoals() Goals {
	return Goals{
		Weekly:    DefaultWeeklyGoal,
		Monthly:   DefaultMonthlyGoal,
		WeekStart: DefaultWeekStart,
	}
}

type Totals struct {
	TotalWorkouts      int        `json:"totalWorkouts"`
	TotalCalories      int        `json:"totalCalories"`
	AvgDurationMinutes float64    `json:"avgDurationMinutes"`
	LastWorkoutDate    *time.Time `json:"lastWorkoutDate"`
}

type GoalProgress struct {
	WeeklyCount  int `json:"weeklyCount"`
	WeeklyGoal   int `json:"weeklyGoal"`
	WeeklyPct    int `json:"weeklyPct"`
	MonthlyCount int `json:"monthlyCount"`
	MonthlyGoal  int `json:"monthlyGoal"`
	MonthlyPct   int `json:"monthlyPct"`
}

// DayActivity is the number of workouts logged on a single day.
type DayActivity struct {
	Date     time.Time `json:"date"`
	Workouts int       `json:"workouts"`
}

type DerivedStatistics struct {
	Totals
	ActiveDays     int           `json:"activeDays"`
	Streak         int           `json:"streak"`
	GoalProgress   GoalProgress  `json:"goalProgress"`
	RecentActivity []DayActivity `json:"recentActivity"`
	ReferenceDate  time.Time     `json:"referenceDate"`
}

// Compute runs all the computations for the given reference date.
func Compute(workouts []repo.Workout, referenceDate time.Time, goals Goals) DerivedStatistics {
	return DerivedStatistics{
		Totals:         ComputeTotals(workouts),
		ActiveDays:     ComputeActiveDays(workouts),
		Streak:         ComputeStreak(workouts, referenceDate),
		GoalProgress:   ComputeGoalProgress(workouts, referenceDate, goals),
		RecentActivity: ComputeRecentActivity(workouts, referenceDate, ActivityDays),
		ReferenceDate:  repo.Day(referenceDate),
	}
}

// ComputeTotals sums up the whole log. Negative (malformed) numbers count as 0.
func ComputeTotals(workouts []repo.Workout) Totals {
	totals := Totals{
		TotalWorkouts: len(workouts),
	}
	if len(workouts) == 0 {
		return totals
	}

	var durationSum int
	var last time.Time
	for _, w := range workouts {
		totals.TotalCalories += nonNegative(w.Calories)
		durationSum += nonNegative(w.DurationMinutes)
		if day := repo.Day(w.Date); day.After(last) {
			last = day
		}
	}

	totals.AvgDurationMinutes = float64(durationSum) / float64(len(workouts))
	totals.LastWorkoutDate = &last

	return totals
}

// ComputeActiveDays counts distinct calendar days with at least one workout.
func ComputeActiveDays(workouts []repo.Workout) int {
	return len(distinctDays(workouts, nil))
}

// ComputeStreak counts consecutive days with a workout, going back from the
// most recent active day. That day has to be today or yesterday, otherwise
// the streak is broken and 0 is returned. Days after today are ignored.
func ComputeStreak(workouts []repo.Workout, today time.Time) int {
	today = repo.Day(today)

	days := distinctDays(workouts, &today)
	if len(days) == 0 {
		return 0
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].After(days[j])
	})

	latest := days[0]
	if daysBetween(latest, today) > 1 {
		return 0
	}

	streak := 1
	anchor := latest
	for _, day := range days[1:] {
		gap := daysBetween(day, anchor)
		switch {
		case gap == 1:
			streak++
			anchor = day
		case gap > 1:
			return streak
		}
		// gap 0 cannot happen on distinct days, skip it if it ever does
	}

	return streak
}

// ComputeGoalProgress counts workouts in the current week and month,
// both windows ending at the reference date inclusive.
func ComputeGoalProgress(workouts []repo.Workout, referenceDate time.Time, goals Goals) GoalProgress {
	ref := repo.Day(referenceDate)
	weekStart := WeekStart(ref, goals.WeekStart)
	monthStart := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)

	progress := GoalProgress{
		WeeklyGoal:  goals.Weekly,
		MonthlyGoal: goals.Monthly,
	}
	for _, w := range workouts {
		day := repo.Day(w.Date)
		if day.After(ref) {
			continue
		}
		if !day.Before(weekStart) {
			progress.WeeklyCount++
		}
		if !day.Before(monthStart) {
			progress.MonthlyCount++
		}
	}

	progress.WeeklyPct = percentage(progress.WeeklyCount, goals.Weekly)
	progress.MonthlyPct = percentage(progress.MonthlyCount, goals.Monthly)

	return progress
}

// ComputeRecentActivity returns the workout count for each of the last n days
// ending at the reference date, oldest day first.
func ComputeRecentActivity(workouts []repo.Workout, referenceDate time.Time, n int) []DayActivity {
	if n <= 0 {
		return []DayActivity{}
	}

	ref := repo.Day(referenceDate)
	first := ref.AddDate(0, 0, -(n - 1))

	perDay := make(map[time.Time]int)
	for _, w := range workouts {
		day := repo.Day(w.Date)
		if day.Before(first) || day.After(ref) {
			continue
		}
		perDay[day]++
	}

	activity := make([]DayActivity, 0, n)
	for day := first; !day.After(ref); day = day.AddDate(0, 0, 1) {
		activity = append(activity, DayActivity{
			Date:     day,
			Workouts: perDay[day],
		})
	}

	return activity
}

// WeekStart returns the first day of the week containing day.
func WeekStart(day time.Time, weekStart time.Weekday) time.Time {
	day = repo.Day(day)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// distinctDays returns the set of workout days, optionally only those not after notAfter.
func distinctDays(workouts []repo.Workout, notAfter *time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(workouts))
	days := make([]time.Time, 0, len(workouts))
	for _, w := range workouts {
		day := repo.Day(w.Date)
		if notAfter != nil && day.After(*notAfter) {
			continue
		}
		if seen[day] {
			continue
		}
		seen[day] = true
		days = append(days, day)
	}
	return days
}

// daysBetween expects both arguments to be normalized with repo.Day.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from) / (24 * time.Hour))
}

func percentage(count, goal int) int {
	if goal <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(count) / float64(goal)))
	return min(pct, 100)
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
