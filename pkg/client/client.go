package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const tokenHeader = "X-LIFTLOG-TOKEN"

// ErrConflict is returned when the server refuses a create because an
// equal resource already exists.
var ErrConflict = errors.New("resource already exists")

type Exercise struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	UserID    int       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Set struct {
	ID           int       `json:"id"`
	Reps         int       `json:"reps"`
	Weight       float64   `json:"weight"`
	WorkoutLogID int       `json:"workoutLogId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type WorkoutLog struct {
	ID         int       `json:"id"`
	Date       time.Time `json:"date"`
	UserID     int       `json:"userId"`
	ExerciseID int       `json:"exerciseId"`
	CreatedAt  time.Time `json:"createdAt"`
	Sets       []Set     `json:"sets"`
}

type SetParams struct {
	Reps   int     `json:"reps"`
	Weight float64 `json:"weight"`
}

type WorkoutLogParams struct {
	Date       time.Time   `json:"date"`
	ExerciseID int         `json:"exerciseId"`
	Sets       []SetParams `json:"sets"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

// Client talks to a liftlog server. All calls carry the session token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
	}
}

func (c *Client) ListExercises(ctx context.Context) ([]Exercise, error) {
	var exercises []Exercise
	if err := c.doJSON(ctx, "GET", "/api/exercises", nil, &exercises); err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	return exercises, nil
}

func (c *Client) CreateExercise(ctx context.Context, name string) (*Exercise, error) {
	reqBody := struct {
		Name string `json:"name"`
	}{Name: name}

	exercise := &Exercise{}
	if err := c.doJSON(ctx, "POST", "/api/exercises", reqBody, exercise); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create exercise: %w", err)
	}
	return exercise, nil
}

func (c *Client) CreateWorkoutLog(ctx context.Context, params WorkoutLogParams) (*WorkoutLog, error) {
	workoutLog := &WorkoutLog{}
	if err := c.doJSON(ctx, "POST", "/api/workouts", params, workoutLog); err != nil {
		return nil, fmt.Errorf("create workout log: %w", err)
	}
	return workoutLog, nil
}

// WorkoutLogsForDate returns the logs of the UTC day containing date.
func (c *Client) WorkoutLogsForDate(ctx context.Context, date time.Time) ([]WorkoutLog, error) {
	path := fmt.Sprintf("/api/workouts?date=%s", date.UTC().Format(time.DateOnly))
	var workoutLogs []WorkoutLog
	if err := c.doJSON(ctx, "GET", path, nil, &workoutLogs); err != nil {
		return nil, fmt.Errorf("workout logs for date: %w", err)
	}
	return workoutLogs, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respDest any) error {
	var bodyReader io.Reader
	if reqBody != nil {
		reqJson, err := json.Marshal(reqBody)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewReader(reqJson)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusConflict {
			return ErrConflict
		}
		var errResp errorResponse
		if err := json.Unmarshal(respBytes, &errResp); err == nil && errResp.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if respDest == nil {
		return nil
	}
	return json.Unmarshal(respBytes, respDest)
}
