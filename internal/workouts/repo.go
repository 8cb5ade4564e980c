package workouts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/liftlogapp/liftlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrWorkoutLogNotFound = errors.New("workout log not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add stores the workout log together with all its sets in a single
// transaction. Either everything lands or nothing does.
func (r *Repo) Add(ctx context.Context, workoutLog WorkoutLog) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", workoutLog.UserID))
	span.SetAttributes(attribute.Int("exercise.id", workoutLog.ExerciseID))
	span.SetAttributes(attribute.Int("sets.count", len(workoutLog.Sets)))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	workoutLog.CreatedAt = time.Now().UTC()
	err = tx.QueryRow(ctx, `
			INSERT INTO workout_log (date, user_id, exercise_id, created_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id;`,
		workoutLog.Date, workoutLog.UserID, workoutLog.ExerciseID, workoutLog.CreatedAt,
	).Scan(&workoutLog.ID)
	if err != nil {
		return nil, err
	}

	for i := range workoutLog.Sets {
		set := &workoutLog.Sets[i]
		set.WorkoutLogID = workoutLog.ID
		set.CreatedAt = workoutLog.CreatedAt
		err = tx.QueryRow(ctx, `
				INSERT INTO workout_set (reps, weight, workout_log_id, created_at)
				VALUES ($1, $2, $3, $4)
				RETURNING id;`,
			set.Reps, set.Weight, set.WorkoutLogID, set.CreatedAt,
		).Scan(&set.ID)
		if err != nil {
			return nil, err
		}
	}

	span.SetAttributes(attribute.Int("workoutLog.id", workoutLog.ID))
	return &workoutLog, nil
}

// ListForDay returns all workout logs of the user whose date falls within
// the UTC day of the given date. Logs come newest first, the sets of each
// log in the order they were recorded.
func (r *Repo) ListForDay(ctx context.Context, userID int, date time.Time) (_ []WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.listForDay")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("user.id", userID))
	span.SetAttributes(attribute.String("date", date.Format(time.DateOnly)))

	from, to := DayWindow(date)

	rows, err := r.db.Query(ctx, `
			SELECT
				wl.id, wl.date, wl.user_id, wl.exercise_id, wl.created_at,
				ws.id, ws.reps, ws.weight, ws.created_at
			FROM workout_log wl
			LEFT JOIN workout_set ws ON ws.workout_log_id = wl.id
			WHERE wl.user_id = $1 AND wl.date >= $2 AND wl.date <= $3
			ORDER BY wl.created_at DESC, wl.id DESC, ws.created_at ASC, ws.id ASC;`,
		userID, from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2workoutLogs(rows)
}

// Get returns the workout log with its sets, only if owned by the user.
func (r *Repo) Get(ctx context.Context, id, userID int) (_ *WorkoutLog, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	workoutLog := &WorkoutLog{}
	err = r.db.QueryRow(ctx, `
			SELECT id, date, user_id, exercise_id, created_at
			FROM workout_log
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	).Scan(&workoutLog.ID, &workoutLog.Date, &workoutLog.UserID, &workoutLog.ExerciseID, &workoutLog.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWorkoutLogNotFound
		}
		return nil, err
	}

	workoutLog.Sets = make([]Set, 0)
	rows, err := r.db.Query(ctx, `
			SELECT id, reps, weight, workout_log_id, created_at
			FROM workout_set
			WHERE workout_log_id = $1
			ORDER BY created_at ASC, id ASC;`,
		workoutLog.ID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var s Set
		if err := rows.Scan(&s.ID, &s.Reps, &s.Weight, &s.WorkoutLogID, &s.CreatedAt); err != nil {
			return nil, err
		}
		workoutLog.Sets = append(workoutLog.Sets, s)
	}
	return workoutLog, nil
}

// Delete removes the workout log and its sets, only if owned by the user.
func (r *Repo) Delete(ctx context.Context, id, userID int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.workouts.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, `
			DELETE FROM workout_set
			WHERE workout_log_id IN (
				SELECT id FROM workout_log WHERE id = $1 AND user_id = $2
			);`,
		id, userID,
	); err != nil {
		return err
	}

	cmdTag, err := tx.Exec(ctx, `
			DELETE FROM workout_log
			WHERE id = $1 AND user_id = $2;`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrWorkoutLogNotFound
	}
	return nil
}

func (r *Repo) rows2workoutLogs(rows pgx.Rows) ([]WorkoutLog, error) {
	logs := make([]WorkoutLog, 0)
	logIndex := make(map[int]int)
	for rows.Next() {
		var (
			wl        WorkoutLog
			setID     *int
			reps      *int
			weight    *float64
			createdAt *time.Time
		)
		if err := rows.Scan(
			&wl.ID, &wl.Date, &wl.UserID, &wl.ExerciseID, &wl.CreatedAt,
			&setID, &reps, &weight, &createdAt,
		); err != nil {
			return nil, err
		}

		i, seen := logIndex[wl.ID]
		if !seen {
			wl.Sets = make([]Set, 0)
			logs = append(logs, wl)
			i = len(logs) - 1
			logIndex[wl.ID] = i
		}

		// null set columns mean a log without sets (left join)
		if setID == nil {
			continue
		}
		logs[i].Sets = append(logs[i].Sets, Set{
			ID:           *setID,
			Reps:         *reps,
			Weight:       *weight,
			WorkoutLogID: wl.ID,
			CreatedAt:    *createdAt,
		})
	}
	return logs, nil
}
