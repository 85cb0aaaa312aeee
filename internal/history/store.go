// Package history persists the log of completed workouts. The storage layer
// is a single string-keyed document slot in SQLite holding the full JSON
// array, read and written whole. Records are append-only except for the one
// allowed mutation: marking a completion as minted.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// storageKey matches the document key used by the original mobile build, so
// a migrated history document stays readable.
const storageKey = "stoic_completed_workouts"

// CompletedWorkout is one finished session. NFTMinted flips false→true exactly
// once, when the completion badge lands on-chain; no other field ever changes.
type CompletedWorkout struct {
	WorkoutID      string    `json:"workoutId"`
	WorkoutName    string    `json:"workoutName"`
	CompletedAt    time.Time `json:"completedAt"`
	ExerciseCount  int       `json:"exerciseCount"`
	NFTMinted      bool      `json:"nftMinted"`
	NFTMintAddress string    `json:"nftMintAddress,omitempty"`
}

// Store is the durable completion log. The in-memory slice is the source of
// truth for the process lifetime; every mutation persists the whole document
// afterwards, and persistence failures are logged and swallowed so a broken
// disk never blocks workout tracking.
type Store struct {
	mu      sync.Mutex
	db      *sql.DB
	log     *slog.Logger
	records []CompletedWorkout
}

// Open opens (or creates) the history database at path and loads the
// completion document. A missing or corrupt document yields an empty history,
// never an error.
func Open(path string, log *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS slots (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating slots table: %w", err)
	}

	s := &Store{db: db, log: log}
	s.records = s.load()
	return s, nil
}

// load reads the persisted document. Fails soft: absence and corruption both
// produce an empty history so tracking keeps working.
func (s *Store) load() []CompletedWorkout {
	var doc string
	err := s.db.QueryRow(`SELECT value FROM slots WHERE key = ?`, storageKey).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		s.log.Warn("reading completion history failed, starting empty", "error", err)
		return nil
	}

	var records []CompletedWorkout
	if err := json.Unmarshal([]byte(doc), &records); err != nil {
		s.log.Warn("completion history is corrupt, starting empty", "error", err)
		return nil
	}
	return records
}

// persist writes the whole document back. Called with s.mu held.
func (s *Store) persist() {
	doc, err := json.Marshal(s.records)
	if err != nil {
		s.log.Error("encoding completion history failed", "error", err)
		return
	}
	_, err = s.db.Exec(
		`INSERT INTO slots (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		storageKey, string(doc),
	)
	if err != nil {
		// In-memory history stays valid for this process; durability across
		// restart is not guaranteed on a failed write.
		s.log.Error("persisting completion history failed", "error", err)
	}
}

// Append adds a completion record to the end of the log and persists.
func (s *Store) Append(rec CompletedWorkout) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	s.persist()
}

// MarkMinted finds the earliest record for workoutID that has not been minted
// yet, sets its mint fields, persists, and reports whether a record was
// updated. Matching the first unminted occurrence guards against re-flipping
// an already-minted completion when the same workout id repeats in history.
func (s *Store) MarkMinted(workoutID, mintAddress string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.records {
		if s.records[i].WorkoutID == workoutID && !s.records[i].NFTMinted {
			s.records[i].NFTMinted = true
			s.records[i].NFTMintAddress = mintAddress
			s.persist()
			return true
		}
	}
	return false
}

// All returns a copy of the completion log in completion order.
func (s *Store) All() []CompletedWorkout {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]CompletedWorkout, len(s.records))
	copy(out, s.records)
	return out
}

// Latest returns the most recent completion, if any.
func (s *Store) Latest() (CompletedWorkout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.records) == 0 {
		return CompletedWorkout{}, false
	}
	return s.records[len(s.records)-1], true
}

// Close closes the history database.
func (s *Store) Close() error {
	return s.db.Close()
}
