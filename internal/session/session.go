// Package session tracks the active workout: which workout is in progress and
// which of its exercises have been checked off. The session is transient; only
// completions reach the history store.
package session

import (
	"time"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/history"
)

// Session is the workout state machine: Idle (no current workout) → Active
// (workout set, some exercises done) → Complete (all exercises done) → Idle
// via Reset. Invariant: done only ever contains exercise ids belonging to the
// current workout, and is empty when no workout is active.
type Session struct {
	store   *history.Store
	now     func() time.Time
	current *catalog.Workout
	done    map[string]struct{}
}

// New creates an idle session backed by the given history store.
func New(store *history.Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Start begins a workout. Any prior progress is discarded unconditionally;
// partial progress on an abandoned workout is never persisted.
func (s *Session) Start(w catalog.Workout) {
	s.current = &w
	s.done = make(map[string]struct{})
}

// Toggle flips the done state of one exercise. Ids that do not belong to the
// current workout are ignored, which keeps the done-set invariant intact.
func (s *Session) Toggle(exerciseID string) {
	if s.current == nil || !s.current.HasExercise(exerciseID) {
		return
	}
	if _, ok := s.done[exerciseID]; ok {
		delete(s.done, exerciseID)
	} else {
		s.done[exerciseID] = struct{}{}
	}
}

// Done reports whether one exercise is currently checked off.
func (s *Session) Done(exerciseID string) bool {
	_, ok := s.done[exerciseID]
	return ok
}

// DoneCount returns how many exercises are checked off.
func (s *Session) DoneCount() int {
	return len(s.done)
}

// Current returns the active workout, if any.
func (s *Session) Current() (catalog.Workout, bool) {
	if s.current == nil {
		return catalog.Workout{}, false
	}
	return *s.current, true
}

// IsComplete reports whether every exercise of the current workout is done.
// False when no workout is active.
func (s *Session) IsComplete() bool {
	if s.current == nil || len(s.current.Exercises) == 0 {
		return false
	}
	for _, ex := range s.current.Exercises {
		if _, ok := s.done[ex.ID]; !ok {
			return false
		}
	}
	return true
}

// Complete records the finished workout in history and returns the new record.
// Calling it before every exercise is done is a guarded no-op returning nil,
// not an error: the UI simply has nothing to record yet.
func (s *Session) Complete() *history.CompletedWorkout {
	if s.current == nil || !s.IsComplete() {
		return nil
	}
	rec := history.CompletedWorkout{
		WorkoutID:     s.current.ID,
		WorkoutName:   s.current.Name,
		CompletedAt:   s.now().UTC(),
		ExerciseCount: len(s.current.Exercises),
		NFTMinted:     false,
	}
	s.store.Append(rec)
	return &rec
}

// Reset returns the session to idle. Persisted history is untouched.
func (s *Session) Reset() {
	s.current = nil
	s.done = nil
}
