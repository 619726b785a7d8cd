// Package registry maps environment IDs to task constructors so runners can
// build tasks by name. The built-in environments register themselves at
// package init.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/flightline/aerogym/internal/env"
	"github.com/flightline/aerogym/internal/task"
)

// BuildFunc constructs a task against a flight backend.
type BuildFunc func(flight env.FlightBackend, p task.Params, logger *zap.Logger) (env.Task, error)

// Spec describes a registered environment: its public ID, the per-episode
// step cap the runner enforces, and its constructor.
type Spec struct {
	ID       string
	MaxSteps int
	Build    BuildFunc
}

var (
	mu    sync.RWMutex
	specs = map[string]Spec{}
)

// Register adds an environment. Empty IDs, nil constructors and duplicate
// IDs are rejected.
func Register(s Spec) error {
	if s.ID == "" {
		return fmt.Errorf("registry: empty environment id")
	}
	if s.Build == nil {
		return fmt.Errorf("registry: environment %s has no constructor", s.ID)
	}
	if s.MaxSteps < 1 {
		return fmt.Errorf("registry: environment %s needs a positive step cap", s.ID)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, dup := specs[s.ID]; dup {
		return fmt.Errorf("registry: environment %s already registered", s.ID)
	}
	specs[s.ID] = s
	return nil
}

// MustRegister is Register for package init paths.
func MustRegister(s Spec) {
	if err := Register(s); err != nil {
		panic(err)
	}
}

// Lookup returns the spec for id.
func Lookup(id string) (Spec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	s, ok := specs[id]
	return s, ok
}

// New builds the task registered under id.
func New(id string, flight env.FlightBackend, p task.Params, logger *zap.Logger) (env.Task, Spec, error) {
	s, ok := Lookup(id)
	if !ok {
		return nil, Spec{}, fmt.Errorf("registry: unknown environment %q (known: %v)", id, ids())
	}
	t, err := s.Build(flight, p, logger)
	if err != nil {
		return nil, Spec{}, fmt.Errorf("registry: build %s: %w", id, err)
	}
	return t, s, nil
}

// List returns all registered specs sorted by ID.
func List() []Spec {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Spec, 0, len(specs))
	for _, s := range specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func ids() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(specs))
	for id := range specs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func init() {
	MustRegister(Spec{
		ID:       "uav-waypoint-v0",
		MaxSteps: 500,
		Build: func(flight env.FlightBackend, p task.Params, logger *zap.Logger) (env.Task, error) {
			return task.NewWaypoint(flight, p, logger)
		},
	})
	MustRegister(Spec{
		ID:       "uav-hover-v0",
		MaxSteps: 300,
		Build: func(flight env.FlightBackend, p task.Params, logger *zap.Logger) (env.Task, error) {
			return task.NewHover(flight, p, logger)
		},
	})
}
