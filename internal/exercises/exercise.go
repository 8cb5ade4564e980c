package exercises

import "time"

// Exercise is a named activity a user tracks (e.g. "Squat"), unique per user.
type Exercise struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	UserID    int       `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
