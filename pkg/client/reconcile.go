package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/multierr"
)

// PostWorkoutLogs saves all unsaved draft logs from the store to the
// server. Exercises are resolved by name first (created when missing),
// then the logs are submitted concurrently. Drafts which made it to the
// server stay in the store with the server assigned ids filled in, so
// Saved() turns true for them; failed ones keep their zero ids for a
// retry. The returned error aggregates all individual failures.
func (c *Client) PostWorkoutLogs(ctx context.Context, store *Store) error {
	drafts := store.Logs()

	exerciseByName, err := c.resolveExercises(ctx, drafts)
	// resolution failures surface per draft below, keep going with what we have

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		draftErrs  = make([]error, len(drafts))
		savedLogs  = make([]*WorkoutLog, len(drafts))
		anyPending bool
	)
	for i := range drafts {
		if drafts[i].Saved() {
			continue
		}

		exercise, ok := exerciseByName[strings.ToLower(drafts[i].ExerciseName)]
		if !ok {
			if err != nil {
				draftErrs[i] = fmt.Errorf("exercise %q not resolved: %w", drafts[i].ExerciseName, err)
			} else {
				draftErrs[i] = fmt.Errorf("exercise %q not resolved", drafts[i].ExerciseName)
			}
			continue
		}

		anyPending = true
		wg.Add(1)
		go func(i int, exerciseID int) {
			defer wg.Done()

			params := WorkoutLogParams{
				Date:       drafts[i].Date,
				ExerciseID: exerciseID,
				Sets:       make([]SetParams, 0, len(drafts[i].Sets)),
			}
			for _, s := range drafts[i].Sets {
				params.Sets = append(params.Sets, SetParams{Reps: s.Reps, Weight: s.Weight})
			}

			savedLog, saveErr := c.CreateWorkoutLog(ctx, params)
			mu.Lock()
			defer mu.Unlock()
			if saveErr != nil {
				draftErrs[i] = fmt.Errorf("save log for %q: %w", drafts[i].ExerciseName, saveErr)
				return
			}
			savedLogs[i] = savedLog
		}(i, exercise.ID)
	}
	if anyPending {
		wg.Wait()
	}

	// swap the store state only now, when every submission settled;
	// drafts keep their client ids, saved ones get the server ids
	for i := range drafts {
		savedLog := savedLogs[i]
		if savedLog == nil {
			continue
		}
		drafts[i].ID = savedLog.ID
		drafts[i].ExerciseID = savedLog.ExerciseID
		// sets come back in the order they were sent
		for j := range drafts[i].Sets {
			if j < len(savedLog.Sets) {
				drafts[i].Sets[j].ID = savedLog.Sets[j].ID
			}
		}
	}
	store.replace(drafts)

	return multierr.Combine(draftErrs...)
}

// resolveExercises makes sure every exercise named by an unsaved draft
// exists on the server, creating the missing ones. A create losing the
// race to a concurrent client (conflict response) is fine, the exercise
// is simply fetched again.
func (c *Client) resolveExercises(ctx context.Context, drafts []DraftLog) (map[string]Exercise, error) {
	exerciseByName := make(map[string]Exercise)

	listed, err := c.ListExercises(ctx)
	if err != nil {
		return exerciseByName, err
	}
	for _, e := range listed {
		exerciseByName[strings.ToLower(e.Name)] = e
	}

	var errs error
	for _, d := range drafts {
		if d.Saved() {
			continue
		}
		nameKey := strings.ToLower(d.ExerciseName)
		if _, ok := exerciseByName[nameKey]; ok {
			continue
		}

		created, createErr := c.CreateExercise(ctx, d.ExerciseName)
		if createErr == nil {
			exerciseByName[nameKey] = *created
			continue
		}
		if errors.Is(createErr, ErrConflict) {
			relisted, relistErr := c.ListExercises(ctx)
			if relistErr != nil {
				errs = multierr.Append(errs, relistErr)
				continue
			}
			for _, e := range relisted {
				exerciseByName[strings.ToLower(e.Name)] = e
			}
			if _, ok := exerciseByName[nameKey]; ok {
				continue
			}
		}
		errs = multierr.Append(errs, fmt.Errorf("ensure exercise %q: %w", d.ExerciseName, createErr))
	}
	return exerciseByName, errs
}
