package test

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liftlogapp/liftlog/internal/exercises"
)

func (s *IntegrationTestSuite) createExercise(ctx context.Context, token, name string) exercises.Exercise {
	resp := s.doRequest(ctx, "POST", "/api/exercises", token, exercises.AddExerciseRequest{
		Name: name,
	})
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)

	var exercise exercises.Exercise
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&exercise))
	return exercise
}

func (s *IntegrationTestSuite) listExercises(ctx context.Context, token string) []exercises.Exercise {
	resp := s.doRequest(ctx, "GET", "/api/exercises", token, nil)
	defer resp.Body.Close()
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var listed []exercises.Exercise
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&listed))
	return listed
}

func (s *IntegrationTestSuite) TestExercises() {
	ctx := context.Background()
	user, token := s.newLoggedInUser(ctx)

	// name gets trimmed before storing
	squat := s.createExercise(ctx, token, "  Squat ")
	assert.Equal(s.T(), "Squat", squat.Name)
	assert.Equal(s.T(), user.ID, squat.UserID)
	assert.NotZero(s.T(), squat.ID)

	// an equal name is refused
	resp := s.doRequest(ctx, "POST", "/api/exercises", token, exercises.AddExerciseRequest{
		Name: "Squat",
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusConflict, resp.StatusCode)

	// a blank name is refused
	resp = s.doRequest(ctx, "POST", "/api/exercises", token, exercises.AddExerciseRequest{
		Name: "    ",
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusBadRequest, resp.StatusCode)

	s.createExercise(ctx, token, "Bench Press")
	listed := s.listExercises(ctx, token)
	require.Len(s.T(), listed, 2)
	// ordered by name
	assert.Equal(s.T(), "Bench Press", listed[0].Name)
	assert.Equal(s.T(), "Squat", listed[1].Name)
}

func (s *IntegrationTestSuite) TestExercises_perUserNamespace() {
	ctx := context.Background()
	_, token1 := s.newLoggedInUser(ctx)
	_, token2 := s.newLoggedInUser(ctx)

	s.createExercise(ctx, token1, "Deadlift")

	// a different user may use the same name
	s.createExercise(ctx, token2, "Deadlift")

	listed := s.listExercises(ctx, token2)
	require.Len(s.T(), listed, 1)
	assert.Equal(s.T(), "Deadlift", listed[0].Name)
}

func (s *IntegrationTestSuite) TestExercises_ensure() {
	ctx := context.Background()
	_, token := s.newLoggedInUser(ctx)

	squat := s.createExercise(ctx, token, "Squat")

	// same name, different casing, resolves to the existing row
	resp := s.doRequest(ctx, "POST", "/api/exercises/ensure", token, exercises.AddExerciseRequest{
		Name: "sQuAt",
	})
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)
	var ensured exercises.Exercise
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&ensured))
	resp.Body.Close()
	assert.Equal(s.T(), squat.ID, ensured.ID)

	// unknown name gets created
	resp = s.doRequest(ctx, "POST", "/api/exercises/ensure", token, exercises.AddExerciseRequest{
		Name: "Overhead Press",
	})
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode)
	require.NoError(s.T(), json.NewDecoder(resp.Body).Decode(&ensured))
	resp.Body.Close()
	assert.NotZero(s.T(), ensured.ID)
}

func (s *IntegrationTestSuite) TestExercises_unauthorized() {
	ctx := context.Background()

	var exercisesCountBefore int
	require.NoError(s.T(), s.dbPool.QueryRow(ctx, "SELECT COUNT(*) FROM exercise").Scan(&exercisesCountBefore))

	resp := s.doRequest(ctx, "POST", "/api/exercises", "", exercises.AddExerciseRequest{
		Name: "Sneaky Squat",
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)

	resp = s.doRequest(ctx, "POST", "/api/exercises", "bogus-token", exercises.AddExerciseRequest{
		Name: "Sneaky Squat",
	})
	resp.Body.Close()
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)

	// nothing persisted
	var exercisesCountAfter int
	require.NoError(s.T(), s.dbPool.QueryRow(ctx, "SELECT COUNT(*) FROM exercise").Scan(&exercisesCountAfter))
	assert.Equal(s.T(), exercisesCountBefore, exercisesCountAfter)
}
