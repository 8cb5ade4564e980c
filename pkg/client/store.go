package client

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DraftSet is a set edited locally. ID stays zero until the parent log
// is saved on the server.
type DraftSet struct {
	ClientID string  `json:"clientId"`
	ID       int     `json:"id"`
	Reps     int     `json:"reps"`
	Weight   float64 `json:"weight"`
}

// DraftLog is a workout log edited locally, identified by a stable
// client-side uuid. ID and ExerciseID stay zero until saved.
type DraftLog struct {
	ClientID     string     `json:"clientId"`
	ID           int        `json:"id"`
	ExerciseName string     `json:"exerciseName"`
	ExerciseID   int        `json:"exerciseId"`
	Date         time.Time  `json:"date"`
	Sets         []DraftSet `json:"sets"`
}

// Saved tells whether the log has already been persisted on the server.
func (l DraftLog) Saved() bool {
	return l.ID != 0
}

// Store holds workout logs being edited before they are saved to the
// server. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	logs []DraftLog
}

func NewStore() *Store {
	return &Store{
		logs: make([]DraftLog, 0),
	}
}

// AddLog starts a draft log for the given exercise name. If a draft for
// the same exercise already exists (name match is case-insensitive), that
// draft is reused instead of creating a duplicate.
func (s *Store) AddLog(exerciseName string, date time.Time) DraftLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	exerciseName = strings.TrimSpace(exerciseName)
	for _, l := range s.logs {
		if strings.EqualFold(l.ExerciseName, exerciseName) {
			// copy the sets so the caller cannot reach past the mutex
			sets := make([]DraftSet, len(l.Sets))
			copy(sets, l.Sets)
			l.Sets = sets
			return l
		}
	}

	newLog := DraftLog{
		ClientID:     uuid.NewString(),
		ExerciseName: exerciseName,
		Date:         date,
		Sets:         make([]DraftSet, 0),
	}
	s.logs = append(s.logs, newLog)
	return newLog
}

// RemoveLog removes the draft log. Removing an unknown log is a no-op.
func (s *Store) RemoveLog(logClientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, l := range s.logs {
		if l.ClientID == logClientID {
			s.logs = append(s.logs[:i], s.logs[i+1:]...)
			return
		}
	}
}

// UpdateLog changes the exercise name of a draft log. Returns false if
// the log is unknown.
func (s *Store) UpdateLog(logClientID, exerciseName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.logs {
		if s.logs[i].ClientID == logClientID {
			s.logs[i].ExerciseName = strings.TrimSpace(exerciseName)
			return true
		}
	}
	return false
}

// AddSetToLog appends a set to the draft log. Returns false if the log
// is unknown.
func (s *Store) AddSetToLog(logClientID string, reps int, weight float64) (DraftSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.logs {
		if s.logs[i].ClientID != logClientID {
			continue
		}
		newSet := DraftSet{
			ClientID: uuid.NewString(),
			Reps:     reps,
			Weight:   weight,
		}
		s.logs[i].Sets = append(s.logs[i].Sets, newSet)
		return newSet, true
	}
	return DraftSet{}, false
}

// UpdateSetInLog changes reps and weight of a set. Returns false if the
// log or the set is unknown.
func (s *Store) UpdateSetInLog(logClientID, setClientID string, reps int, weight float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.logs {
		if s.logs[i].ClientID != logClientID {
			continue
		}
		for j := range s.logs[i].Sets {
			if s.logs[i].Sets[j].ClientID == setClientID {
				s.logs[i].Sets[j].Reps = reps
				s.logs[i].Sets[j].Weight = weight
				return true
			}
		}
	}
	return false
}

// RemoveSetFromLog removes a set from the draft log. Removing an unknown
// set is a no-op.
func (s *Store) RemoveSetFromLog(logClientID, setClientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.logs {
		if s.logs[i].ClientID != logClientID {
			continue
		}
		for j, set := range s.logs[i].Sets {
			if set.ClientID == setClientID {
				s.logs[i].Sets = append(s.logs[i].Sets[:j], s.logs[i].Sets[j+1:]...)
				return
			}
		}
	}
}

// Logs returns a snapshot of all draft logs.
func (s *Store) Logs() []DraftLog {
	s.mu.Lock()
	defer s.mu.Unlock()

	logs := make([]DraftLog, len(s.logs))
	copy(logs, s.logs)
	for i := range logs {
		sets := make([]DraftSet, len(logs[i].Sets))
		copy(sets, logs[i].Sets)
		logs[i].Sets = sets
	}
	return logs
}

func (s *Store) replace(logs []DraftLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = logs
}
