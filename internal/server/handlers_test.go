package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/claude/stoicmint/internal/catalog"
	"github.com/claude/stoicmint/internal/history"
	"github.com/claude/stoicmint/internal/mint"
	"github.com/claude/stoicmint/internal/session"
)

// fakeMinter stands in for the pipeline so handler tests never touch a chain.
type fakeMinter struct {
	result *mint.Result
	err    *mint.Error
	calls  int
	last   history.CompletedWorkout
}

func (f *fakeMinter) Mint(ctx context.Context, completed history.CompletedWorkout) (*mint.Result, *mint.Error) {
	f.calls++
	f.last = completed
	return f.result, f.err
}

func newTestServer(t *testing.T, minter Minter) (*Server, *history.Store) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"), log)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	cat := catalog.MustLoad()
	srv := New(cat, session.New(store), store, minter, log)
	return srv, store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

// TestWorkoutEndpoints verifies the catalog surface: listing, lookup by id,
// and the 404 for unknown ids.
func TestWorkoutEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMinter{})

	rec := doJSON(t, srv, http.MethodGet, "/api/v1/workouts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	workouts := decode[[]catalog.Workout](t, rec)
	if len(workouts) != 5 {
		t.Errorf("listed %d workouts, want 5", len(workouts))
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/workouts/wod-002", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	w := decode[catalog.Workout](t, rec)
	if w.Name != "IRON WILL" {
		t.Errorf("name = %q, want IRON WILL", w.Name)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/workouts/wod-404", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown workout status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, http.MethodGet, "/api/v1/workouts/today", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("today status = %d", rec.Code)
	}
}

// TestSessionFlow verifies the full tracking flow over HTTP: start, toggle
// each exercise, complete, and the resulting history record.
func TestSessionFlow(t *testing.T) {
	srv, store := newTestServer(t, &fakeMinter{})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/session/start", map[string]string{"workoutId": "wod-004"})
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	view := decode[sessionView](t, rec)
	if view.Workout == nil || view.Workout.ID != "wod-004" {
		t.Fatalf("session workout = %+v, want wod-004", view.Workout)
	}

	// Completing early is a guarded no-op.
	rec = doJSON(t, srv, http.MethodPost, "/api/v1/session/complete", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("early complete status = %d, want 409", rec.Code)
	}

	for _, ex := range view.Workout.Exercises {
		rec = doJSON(t, srv, http.MethodPost, "/api/v1/session/toggle", map[string]string{"exerciseId": ex.ID})
		if rec.Code != http.StatusOK {
			t.Fatalf("toggle %s status = %d", ex.ID, rec.Code)
		}
	}
	view = decode[sessionView](t, rec)
	if !view.IsComplete {
		t.Fatal("session not complete after toggling every exercise")
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/v1/session/complete", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("complete status = %d: %s", rec.Code, rec.Body)
	}
	completed := decode[history.CompletedWorkout](t, rec)
	if completed.ExerciseCount != 6 || completed.NFTMinted {
		t.Errorf("completion record = %+v", completed)
	}

	if n := len(store.All()); n != 1 {
		t.Errorf("history has %d records, want 1", n)
	}
}

// TestToggleWithoutSession verifies toggling with no active workout is
// rejected rather than silently dropped by the API.
func TestToggleWithoutSession(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMinter{})
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/session/toggle", map[string]string{"exerciseId": "ex-001-1"})
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

// TestStartUnknownWorkout verifies starting a workout that is not in the
// catalog fails with 404.
func TestStartUnknownWorkout(t *testing.T) {
	srv, _ := newTestServer(t, &fakeMinter{})
	rec := doJSON(t, srv, http.MethodPost, "/api/v1/session/start", map[string]string{"workoutId": "wod-999"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// TestMintSuccessMarksHistory verifies the caller contract: a successful
// pipeline run is followed by exactly one MarkMinted with the returned
// address, updating the record that was minted.
func TestMintSuccessMarksHistory(t *testing.T) {
	minter := &fakeMinter{result: &mint.Result{MintAddress: "MintAddr111", Signature: "Sig111"}}
	srv, store := newTestServer(t, minter)

	store.Append(history.CompletedWorkout{WorkoutID: "wod-001", WorkoutName: "THE GRIND", ExerciseCount: 6})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/mint", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mint status = %d: %s", rec.Code, rec.Body)
	}
	result := decode[mint.Result](t, rec)
	if result.MintAddress != "MintAddr111" {
		t.Errorf("mintAddress = %q", result.MintAddress)
	}
	if minter.calls != 1 || minter.last.WorkoutID != "wod-001" {
		t.Errorf("pipeline called %d times with %+v", minter.calls, minter.last)
	}

	records := store.All()
	if !records[0].NFTMinted || records[0].NFTMintAddress != "MintAddr111" {
		t.Errorf("history not marked minted: %+v", records[0])
	}
}

// TestMintTargetsEarliestUnminted verifies the mint request picks the same
// record MarkMinted will later update, leaving earlier minted completions of
// the same workout untouched.
func TestMintTargetsEarliestUnminted(t *testing.T) {
	minter := &fakeMinter{result: &mint.Result{MintAddress: "MintAddr222", Signature: "Sig222"}}
	srv, store := newTestServer(t, minter)

	store.Append(history.CompletedWorkout{WorkoutID: "wod-001", NFTMinted: true, NFTMintAddress: "MintAddr111"})
	store.Append(history.CompletedWorkout{WorkoutID: "wod-001"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/mint", map[string]string{"workoutId": "wod-001"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mint status = %d: %s", rec.Code, rec.Body)
	}

	records := store.All()
	if records[0].NFTMintAddress != "MintAddr111" {
		t.Errorf("already-minted record re-flipped: %+v", records[0])
	}
	if !records[1].NFTMinted || records[1].NFTMintAddress != "MintAddr222" {
		t.Errorf("unminted record not updated: %+v", records[1])
	}
}

// TestMintNoCompletion verifies minting with an empty history is a 404, not a
// pipeline invocation.
func TestMintNoCompletion(t *testing.T) {
	minter := &fakeMinter{result: &mint.Result{MintAddress: "X", Signature: "Y"}}
	srv, _ := newTestServer(t, minter)

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/mint", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if minter.calls != 0 {
		t.Error("pipeline invoked with nothing to mint")
	}
}

// TestMintUserCancelled verifies a wallet rejection comes back as a benign
// 200 with cancelled=true and leaves history untouched.
func TestMintUserCancelled(t *testing.T) {
	minter := &fakeMinter{err: &mint.Error{Kind: mint.KindUserRejected, Step: "sign-and-send"}}
	srv, store := newTestServer(t, minter)
	store.Append(history.CompletedWorkout{WorkoutID: "wod-003"})

	rec := doJSON(t, srv, http.MethodPost, "/api/v1/mint", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	resp := decode[map[string]any](t, rec)
	if resp["cancelled"] != true {
		t.Errorf("response = %v, want cancelled=true", resp)
	}
	if store.All()[0].NFTMinted {
		t.Error("history marked minted after cancellation")
	}
}

// TestMintFailureStatuses verifies each failure kind maps to its HTTP status
// and carries the user-facing message.
func TestMintFailureStatuses(t *testing.T) {
	cases := []struct {
		kind mint.FailureKind
		want int
	}{
		{mint.KindNotConnected, http.StatusUnauthorized},
		{mint.KindInsufficientBalance, http.StatusPaymentRequired},
		{mint.KindNetwork, http.StatusBadGateway},
		{mint.KindConfirmationTimeout, http.StatusGatewayTimeout},
		{mint.KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		minter := &fakeMinter{err: &mint.Error{Kind: tc.kind, Step: "test"}}
		srv, store := newTestServer(t, minter)
		store.Append(history.CompletedWorkout{WorkoutID: "wod-002"})

		rec := doJSON(t, srv, http.MethodPost, "/api/v1/mint", nil)
		if rec.Code != tc.want {
			t.Errorf("kind %s: status = %d, want %d", tc.kind, rec.Code, tc.want)
		}
		resp := decode[map[string]string](t, rec)
		if resp["error"] == "" || resp["kind"] != tc.kind.String() {
			t.Errorf("kind %s: response = %v", tc.kind, resp)
		}
	}
}
