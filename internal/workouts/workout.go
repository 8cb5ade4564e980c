package workouts

import "time"

// Set is a single round of an exercise within a workout log.
type Set struct {
	ID           int       `json:"id"`
	Reps         int       `json:"reps"`
	Weight       float64   `json:"weight"`
	WorkoutLogID int       `json:"workoutLogId"`
	CreatedAt    time.Time `json:"createdAt"`
}

// WorkoutLog records that a user performed an exercise on a given date,
// together with all the sets done.
type WorkoutLog struct {
	ID         int       `json:"id"`
	Date       time.Time `json:"date"`
	UserID     int       `json:"userId"`
	ExerciseID int       `json:"exerciseId"`
	CreatedAt  time.Time `json:"createdAt"`
	Sets       []Set     `json:"sets"`
}

// DayWindow returns the UTC day boundaries which contain the given date.
// Logs are assigned to a day via [from, to] on their date column.
func DayWindow(date time.Time) (from, to time.Time) {
	date = date.UTC()
	from = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	to = from.Add(24*time.Hour - time.Millisecond)
	return from, to
}
