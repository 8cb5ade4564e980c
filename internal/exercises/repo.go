package exercises

import (
	"context"
	"errors"
	"time"

	"github.com/liftlogapp/liftlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrExerciseNotFound = errors.New("exercise not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, userID int, name string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	now := time.Now().UTC()
	exercise := &Exercise{
		Name:      name,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = r.db.QueryRow(ctx, `
			INSERT INTO exercise (name, user_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		exercise.Name, exercise.UserID, exercise.CreatedAt, exercise.UpdatedAt,
	).Scan(&exercise.ID)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("exercise.id", exercise.ID))
	return exercise, nil
}

// ListForUser returns all exercises of the given user, ordered by name ascending.
func (r *Repo) ListForUser(ctx context.Context, userID int) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	rows, err := r.db.Query(ctx, `
			SELECT id, name, user_id, created_at, updated_at
			FROM exercise
			WHERE user_id = $1
			ORDER BY name ASC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2exercises(rows)
}

// GetOwned returns the exercise only if it belongs to the given user.
func (r *Repo) GetOwned(ctx context.Context, id, userID int) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.getOwned")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))
	span.SetAttributes(attribute.Int("user.id", userID))

	exercise := &Exercise{}
	err = r.db.QueryRow(ctx, `
			SELECT id, name, user_id, created_at, updated_at
			FROM exercise
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	).Scan(&exercise.ID, &exercise.Name, &exercise.UserID, &exercise.CreatedAt, &exercise.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

// FindByName returns the user exercise matching the name case-insensitively.
func (r *Repo) FindByName(ctx context.Context, userID int, name string) (_ *Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.exercises.findByName")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))

	exercise := &Exercise{}
	err = r.db.QueryRow(ctx, `
			SELECT id, name, user_id, created_at, updated_at
			FROM exercise
			WHERE user_id = $1 AND LOWER(name) = LOWER($2);`,
		userID, name,
	).Scan(&exercise.ID, &exercise.Name, &exercise.UserID, &exercise.CreatedAt, &exercise.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	return exercise, nil
}

func (r *Repo) rows2exercises(rows pgx.Rows) ([]Exercise, error) {
	exercises := make([]Exercise, 0)
	for rows.Next() {
		var e Exercise
		if err := rows.Scan(&e.ID, &e.Name, &e.UserID, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		exercises = append(exercises, e)
	}
	return exercises, nil
}
