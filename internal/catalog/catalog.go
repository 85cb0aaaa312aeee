// Package catalog holds the immutable workout-of-the-day catalog. Content is
// embedded at build time; there is no way to add or edit workouts at runtime.
package catalog

import (
	_ "embed"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed workouts.yaml
var workoutsYAML []byte

// Difficulty buckets as they appear in catalog data.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Exercise is one step of a workout. Reps is free-form: a count ("15"), a
// range ("10-15"), "Max", or a duration ("60 sec").
type Exercise struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Reps  string `yaml:"reps" json:"reps"`
	Notes string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Workout is a full routine. Exercise order is meaningful and preserved.
type Workout struct {
	ID               string     `yaml:"id" json:"id"`
	Name             string     `yaml:"name" json:"name"`
	Description      string     `yaml:"description" json:"description"`
	Difficulty       string     `yaml:"difficulty" json:"difficulty"`
	EstimatedMinutes int        `yaml:"estimated_minutes" json:"estimatedMinutes"`
	Exercises        []Exercise `yaml:"exercises" json:"exercises"`
	Tags             []string   `yaml:"tags" json:"tags"`
}

// HasExercise reports whether the workout contains the given exercise id.
func (w Workout) HasExercise(id string) bool {
	for _, ex := range w.Exercises {
		if ex.ID == id {
			return true
		}
	}
	return false
}

// Catalog is the validated, ordered workout list.
type Catalog struct {
	workouts []Workout
	byID     map[string]int
}

// Load parses and validates the embedded workout data.
func Load() (*Catalog, error) {
	return parse(workoutsYAML)
}

// MustLoad is Load for callers where embedded data failing to parse is a
// programming error (main, tests).
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

func parse(data []byte) (*Catalog, error) {
	var doc struct {
		Workouts []Workout `yaml:"workouts"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing workout catalog: %w", err)
	}
	if len(doc.Workouts) == 0 {
		return nil, fmt.Errorf("workout catalog is empty")
	}

	byID := make(map[string]int, len(doc.Workouts))
	for i, w := range doc.Workouts {
		if w.ID == "" {
			return nil, fmt.Errorf("workout %d: missing id", i)
		}
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("workout %s: duplicate id", w.ID)
		}
		switch w.Difficulty {
		case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		default:
			return nil, fmt.Errorf("workout %s: unknown difficulty %q", w.ID, w.Difficulty)
		}
		if len(w.Exercises) == 0 {
			return nil, fmt.Errorf("workout %s: no exercises", w.ID)
		}
		seen := make(map[string]bool, len(w.Exercises))
		for _, ex := range w.Exercises {
			if ex.ID == "" {
				return nil, fmt.Errorf("workout %s: exercise with missing id", w.ID)
			}
			if seen[ex.ID] {
				return nil, fmt.Errorf("workout %s: duplicate exercise id %s", w.ID, ex.ID)
			}
			seen[ex.ID] = true
		}
		byID[w.ID] = i
	}

	return &Catalog{workouts: doc.Workouts, byID: byID}, nil
}

// All returns every workout in catalog order.
func (c *Catalog) All() []Workout {
	out := make([]Workout, len(c.workouts))
	copy(out, c.workouts)
	return out
}

// Len returns the number of workouts in the catalog.
func (c *Catalog) Len() int {
	return len(c.workouts)
}

// ByID looks up a workout by id.
func (c *Catalog) ByID(id string) (Workout, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Workout{}, false
	}
	return c.workouts[i], true
}

// TodaysWorkout selects the workout of the day: day-of-year modulo catalog
// size, so every caller sees the same workout for a given calendar day and
// the catalog cycles day by day.
func (c *Catalog) TodaysWorkout(now time.Time) Workout {
	return c.workouts[now.YearDay()%len(c.workouts)]
}
