package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftlogapp/liftlog/internal/workouts"
	"github.com/liftlogapp/liftlog/pkg/client"
)

func (s *IntegrationTestSuite) postWorkoutLog(
	ctx context.Context,
	token string,
	addReq workouts.AddWorkoutLogRequest,
) workouts.WorkoutLog {
	resp := s.doRequest(ctx, "POST", "/api/workouts", token, addReq)
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	var addedLog workouts.WorkoutLog
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&addedLog))
	return addedLog
}

func (s *IntegrationTestSuite) workoutLogsForDay(ctx context.Context, token, day string) []workouts.WorkoutLog {
	resp := s.doRequest(ctx, "GET", "/api/workouts?date="+day, token, nil)
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var listed []workouts.WorkoutLog
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&listed))
	return listed
}

func (s *IntegrationTestSuite) TestWorkouts_roundTrip() {
	ctx := context.Background()
	user, token := s.newLoggedInUser(ctx)
	squat := s.createExercise(ctx, token, "Squat")

	setsInput := []workouts.AddSetRequest{
		{Reps: 10, Weight: 60},
		{Reps: 8, Weight: 65.5},
		{Reps: 6, Weight: 70},
		{Reps: 0, Weight: 0},
	}
	addedLog := s.postWorkoutLog(ctx, token, workouts.AddWorkoutLogRequest{
		Date:       "2026-08-31T10:30:00.000Z",
		ExerciseID: squat.ID,
		Sets:       setsInput,
	})
	assert.NotZero(s.T(), addedLog.ID)
	assert.Equal(s.T(), user.ID, addedLog.UserID)
	require.Len(s.T(), addedLog.Sets, len(setsInput))

	// review the day, sets must come back in the order they were sent
	listed := s.workoutLogsForDay(ctx, token, "2026-08-31")
	require.Len(s.T(), listed, 1)
	assert.Equal(s.T(), addedLog.ID, listed[0].ID)
	assert.Equal(s.T(), squat.ID, listed[0].ExerciseID)
	require.Len(s.T(), listed[0].Sets, len(setsInput))
	for i, set := range listed[0].Sets {
		assert.Equal(s.T(), setsInput[i].Reps, set.Reps, "set %d reps", i)
		assert.Equal(s.T(), setsInput[i].Weight, set.Weight, "set %d weight", i)
	}

	// a neighboring day is empty
	assert.Empty(s.T(), s.workoutLogsForDay(ctx, token, "2026-09-01"))

	// newest log comes first
	secondLog := s.postWorkoutLog(ctx, token, workouts.AddWorkoutLogRequest{
		Date:       "2026-08-31T18:00:00.000Z",
		ExerciseID: squat.ID,
		Sets:       []workouts.AddSetRequest{{Reps: 5, Weight: 80}},
	})
	listed = s.workoutLogsForDay(ctx, token, "2026-08-31")
	require.Len(s.T(), listed, 2)
	assert.Equal(s.T(), secondLog.ID, listed[0].ID)
	assert.Equal(s.T(), addedLog.ID, listed[1].ID)
}

func (s *IntegrationTestSuite) TestWorkouts_getAndDelete() {
	ctx := context.Background()
	_, token := s.newLoggedInUser(ctx)
	bench := s.createExercise(ctx, token, "Bench Press")

	addedLog := s.postWorkoutLog(ctx, token, workouts.AddWorkoutLogRequest{
		Date:       "2026-08-30",
		ExerciseID: bench.ID,
		Sets:       []workouts.AddSetRequest{{Reps: 12, Weight: 40}},
	})

	resp := s.doRequest(ctx, "GET", fmt.Sprintf("/api/workouts/%d", addedLog.ID), token, nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var gotten workouts.WorkoutLog
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&gotten))
	resp.Body.Close()
	assert.Equal(s.T(), addedLog.ID, gotten.ID)
	require.Len(s.T(), gotten.Sets, 1)

	// another user cannot see or delete it
	_, otherToken := s.newLoggedInUser(ctx)
	resp = s.doRequest(ctx, "GET", fmt.Sprintf("/api/workouts/%d", addedLog.ID), otherToken, nil)
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
	resp = s.doRequest(ctx, "DELETE", fmt.Sprintf("/api/workouts/%d", addedLog.ID), otherToken, nil)
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)

	resp = s.doRequest(ctx, "DELETE", fmt.Sprintf("/api/workouts/%d", addedLog.ID), token, nil)
	resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	resp = s.doRequest(ctx, "GET", fmt.Sprintf("/api/workouts/%d", addedLog.ID), token, nil)
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusNotFound, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestWorkouts_foreignExerciseRefused() {
	ctx := context.Background()
	_, token1 := s.newLoggedInUser(ctx)
	_, token2 := s.newLoggedInUser(ctx)

	foreign := s.createExercise(ctx, token1, "Row")

	resp := s.doRequest(ctx, "POST", "/api/workouts", token2, workouts.AddWorkoutLogRequest{
		Date:       "2026-08-31",
		ExerciseID: foreign.ID,
		Sets:       []workouts.AddSetRequest{{Reps: 10, Weight: 50}},
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)

	assert.Empty(s.T(), s.workoutLogsForDay(ctx, token2, "2026-08-31"))
}

// the workout_set table refuses weights above 1000, which lets us fail the
// sets insert midway and check that the whole log insert rolls back
func (s *IntegrationTestSuite) TestWorkouts_atomicSave() {
	ctx := context.Background()
	_, token := s.newLoggedInUser(ctx)
	squat := s.createExercise(ctx, token, "Squat")

	var logsCountBefore int
	require.NoError(s.T(), s.dbPool.QueryRow(ctx, "SELECT COUNT(*) FROM workout_log").Scan(&logsCountBefore))

	resp := s.doRequest(ctx, "POST", "/api/workouts", token, workouts.AddWorkoutLogRequest{
		Date:       "2026-08-31",
		ExerciseID: squat.ID,
		Sets: []workouts.AddSetRequest{
			{Reps: 10, Weight: 60},
			{Reps: 8, Weight: 5000},
		},
	})
	resp.Body.Close()
	require.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)

	// neither the log nor any of its sets survived
	var logsCountAfter int
	require.NoError(s.T(), s.dbPool.QueryRow(ctx, "SELECT COUNT(*) FROM workout_log").Scan(&logsCountAfter))
	assert.Equal(s.T(), logsCountBefore, logsCountAfter)
	assert.Empty(s.T(), s.workoutLogsForDay(ctx, token, "2026-08-31"))
}

func (s *IntegrationTestSuite) TestWorkouts_unauthorizedNothingPersisted() {
	ctx := context.Background()

	var logsCountBefore int
	require.NoError(s.T(), s.dbPool.QueryRow(ctx, "SELECT COUNT(*) FROM workout_log").Scan(&logsCountBefore))

	resp := s.doRequest(ctx, "POST", "/api/workouts", "", workouts.AddWorkoutLogRequest{
		Date:       "2026-08-31",
		ExerciseID: 1,
		Sets:       []workouts.AddSetRequest{{Reps: 10, Weight: 50}},
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)

	var logsCountAfter int
	require.NoError(s.T(), s.dbPool.QueryRow(ctx, "SELECT COUNT(*) FROM workout_log").Scan(&logsCountAfter))
	assert.Equal(s.T(), logsCountBefore, logsCountAfter)
}

func (s *IntegrationTestSuite) TestClientSDK_saveFlow() {
	ctx := context.Background()
	_, token := s.newLoggedInUser(ctx)

	c := client.New(serverEndpoint, token)
	store := client.NewStore()
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	squatLog := store.AddLog("Squat", day)
	_, ok := store.AddSetToLog(squatLog.ClientID, 10, 100)
	require.True(s.T(), ok)
	_, ok = store.AddSetToLog(squatLog.ClientID, 8, 105)
	require.True(s.T(), ok)

	require.NoError(s.T(), c.PostWorkoutLogs(ctx, store))

	// the draft is reconciled in place: same client id, server ids set
	reconciled := store.Logs()
	require.Len(s.T(), reconciled, 1)
	assert.Equal(s.T(), squatLog.ClientID, reconciled[0].ClientID)
	assert.True(s.T(), reconciled[0].Saved())
	assert.NotZero(s.T(), reconciled[0].ID)
	assert.NotZero(s.T(), reconciled[0].ExerciseID)
	require.Len(s.T(), reconciled[0].Sets, 2)
	assert.NotZero(s.T(), reconciled[0].Sets[0].ID)
	assert.NotZero(s.T(), reconciled[0].Sets[1].ID)

	saved, err := c.WorkoutLogsForDate(ctx, day)
	require.NoError(s.T(), err)
	require.Len(s.T(), saved, 1)
	assert.Equal(s.T(), reconciled[0].ID, saved[0].ID)
	require.Len(s.T(), saved[0].Sets, 2)
	assert.Equal(s.T(), 10, saved[0].Sets[0].Reps)
	assert.Equal(s.T(), 8, saved[0].Sets[1].Reps)
}
