package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/history"
	"github.com/claude/stoicmint/internal/mint"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleTodaysWorkout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.TodaysWorkout(time.Now()))
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	workout, ok := s.catalog.ByID(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown workout: " + id})
		return
	}
	writeJSON(w, http.StatusOK, workout)
}

// sessionView is the session state as the API reports it. Done ids are listed
// in the workout's exercise order so the view is deterministic.
type sessionView struct {
	Workout    *catalog.Workout `json:"workout,omitempty"`
	DoneIDs    []string         `json:"doneExerciseIds"`
	IsComplete bool             `json:"isComplete"`
}

func (s *Server) sessionView() sessionView {
	view := sessionView{DoneIDs: []string{}}
	workout, ok := s.session.Current()
	if !ok {
		return view
	}
	view.Workout = &workout
	for _, ex := range workout.Exercises {
		if s.session.Done(ex.ID) {
			view.DoneIDs = append(view.DoneIDs, ex.ID)
		}
	}
	view.IsComplete = s.session.IsComplete()
	return view
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.sessMu.Lock()
	view := s.sessionView()
	s.sessMu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkoutID string `json:"workoutId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	workout, ok := s.catalog.ByID(req.WorkoutID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown workout: " + req.WorkoutID})
		return
	}

	s.sessMu.Lock()
	s.session.Start(workout)
	view := s.sessionView()
	s.sessMu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleToggleExercise(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID string `json:"exerciseId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.sessMu.Lock()
	if _, ok := s.session.Current(); !ok {
		s.sessMu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no workout in progress"})
		return
	}
	s.session.Toggle(req.ExerciseID)
	view := s.sessionView()
	s.sessMu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	s.sessMu.Lock()
	rec := s.session.Complete()
	s.sessMu.Unlock()

	if rec == nil {
		// Guarded no-op: not every exercise is checked off yet.
		writeJSON(w, http.StatusConflict, map[string]string{"error": "workout is not complete"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	s.sessMu.Lock()
	s.session.Reset()
	s.sessMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.All())
}

// handleMint runs the mint pipeline for an unminted completion and records
// the result. Attempts are serialized: a second request while one is in
// flight is rejected so the same completion cannot be double-minted.
func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkoutID string `json:"workoutId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.mintMu.Lock()
	if s.mintBusy {
		s.mintMu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a mint is already in progress"})
		return
	}
	s.mintBusy = true
	s.mintMu.Unlock()
	defer func() {
		s.mintMu.Lock()
		s.mintBusy = false
		s.mintMu.Unlock()
	}()

	target, ok := s.unmintedCompletion(req.WorkoutID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no unminted completion to mint"})
		return
	}

	result, merr := s.pipeline.Mint(r.Context(), target)
	if merr != nil {
		if merr.Kind == mint.KindUserRejected {
			// Benign abort, not an application error.
			s.log.Info("mint cancelled by user", "workout", target.WorkoutID)
			writeJSON(w, http.StatusOK, map[string]any{
				"cancelled": true,
				"message":   merr.UserMessage(),
			})
			return
		}
		s.log.Error("mint failed",
			"workout", target.WorkoutID,
			"kind", merr.Kind.String(),
			"error", merr,
		)
		writeJSON(w, statusForKind(merr.Kind), map[string]string{
			"error": merr.UserMessage(),
			"kind":  merr.Kind.String(),
		})
		return
	}

	s.store.MarkMinted(target.WorkoutID, result.MintAddress)
	writeJSON(w, http.StatusOK, result)
}

// unmintedCompletion picks the completion to mint: the earliest unminted
// record for workoutID, or for the most recent completion's workout when no
// id is given. Mirrors the MarkMinted matching rule so the record updated
// afterwards is the one that was minted.
func (s *Server) unmintedCompletion(workoutID string) (history.CompletedWorkout, bool) {
	if workoutID == "" {
		latest, ok := s.store.Latest()
		if !ok {
			return history.CompletedWorkout{}, false
		}
		workoutID = latest.WorkoutID
	}
	for _, rec := range s.store.All() {
		if rec.WorkoutID == workoutID && !rec.NFTMinted {
			return rec, true
		}
	}
	return history.CompletedWorkout{}, false
}

func statusForKind(kind mint.FailureKind) int {
	switch kind {
	case mint.KindNotConnected:
		return http.StatusUnauthorized
	case mint.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case mint.KindNetwork:
		return http.StatusBadGateway
	case mint.KindConfirmationTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
