package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitdash/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutNotFound = errors.New("workout not found")

type ListParams struct {
	UserID int
	// From and To are inclusive calendar days, nil means unbounded.
	From *time.Time
	To   *time.Time
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, workout Workout) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", workout.UserID))

	if workout.Locations == nil {
		workout.Locations = []string{}
	}
	workout.Date = Day(workout.Date)

	err = r.db.QueryRow(
		ctx,
		`INSERT INTO workout
				(user_id, workout_type, workout_date, duration, calories, intensity, locations, rating, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id, created_at;`,
		workout.UserID, workout.WorkoutType, workout.Date,
		workout.DurationMinutes, workout.Calories, workout.Intensity.String(),
		workout.Locations, workout.Rating, workout.Notes,
	).Scan(&workout.ID, &workout.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert workout: %w", err)
	}

	span.SetAttributes(attribute.Int("workout.id", workout.ID))
	return &workout, nil
}

func (r *Repo) Get(ctx context.Context, userID, id int) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", id))

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, user_id, workout_type, workout_date, duration, calories, intensity, locations, rating, notes, created_at
			FROM workout
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, err
	}
	if len(workouts) != 1 {
		return nil, ErrWorkoutNotFound
	}

	return &workouts[0], nil
}

// ListAll returns all workouts of a user, newest workout date first.
func (r *Repo) ListAll(ctx context.Context, params ListParams) (_ []Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", params.UserID))

	var from, to *time.Time
	if params.From != nil {
		d := Day(*params.From)
		from = &d
		span.SetAttributes(attribute.String("from", d.Format(DateLayout)))
	}
	if params.To != nil {
		d := Day(*params.To)
		to = &d
		span.SetAttributes(attribute.String("to", d.Format(DateLayout)))
	}

	rows, err := r.db.Query(
		ctx,
		`
			SELECT
				id, user_id, workout_type, workout_date, duration, calories, intensity, locations, rating, notes, created_at
			FROM workout
			WHERE user_id = $1
				AND ($2::date IS NULL OR workout_date >= $2)
				AND ($3::date IS NULL OR workout_date <= $3)
			ORDER BY workout_date DESC, id DESC;`,
		params.UserID, from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	workouts, err := r.rows2workouts(rows)
	if err != nil {
		return nil, fmt.Errorf("rows2workouts: %w", err)
	}

	span.SetAttributes(attribute.Int("workouts.count", len(workouts)))
	return workouts, nil
}

// Delete removes a workout only if it belongs to the given user.
func (r *Repo) Delete(ctx context.Context, userID, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.Int("workout.id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM workout WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

func (r *Repo) rows2workouts(rows pgx.Rows) ([]Workout, error) {
	workouts := make([]Workout, 0)
	for rows.Next() {
		var w Workout
		var intensity string
		if err := rows.Scan(
			&w.ID, &w.UserID, &w.WorkoutType, &w.Date,
			&w.DurationMinutes, &w.Calories, &intensity,
			&w.Locations, &w.Rating, &w.Notes, &w.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("rows scan: %w", err)
		}
		w.Intensity = Intensity(intensity)
		w.Date = Day(w.Date)
		workouts = append(workouts, w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workouts, nil
}
