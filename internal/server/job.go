package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/cwbudde/bayesopt/internal/config"
)

// RunState represents the current state of a run
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
	StateCancelled RunState = "cancelled"
)

// Run is an optimization run submitted to the server
type Run struct {
	ID             string           `json:"id"`
	State          RunState         `json:"state"`
	Config         config.RunConfig `json:"config"`
	Phase          string           `json:"phase,omitempty"`
	Iteration      int              `json:"iteration"`
	Observations   int              `json:"observations"`
	Incumbent      []float64        `json:"incumbent,omitempty"`
	IncumbentValue float64          `json:"incumbentValue"`
	StartTime      time.Time        `json:"startTime"`
	EndTime        *time.Time       `json:"endTime,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// RunManager keeps track of submitted runs
type RunManager struct {
	mu          sync.RWMutex
	runs        map[string]*Run
	broadcaster *EventBroadcaster
	active      *atomic.Int64
}

// NewRunManager creates a new RunManager
func NewRunManager() *RunManager {
	return &RunManager{
		runs:        make(map[string]*Run),
		broadcaster: NewEventBroadcaster(),
		active:      atomic.NewInt64(0),
	}
}

// CreateRun registers a pending run with the given configuration and
// returns a snapshot of it
func (rm *RunManager) CreateRun(cfg config.RunConfig) Run {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run := &Run{
		ID:        uuid.New().String(),
		State:     StatePending,
		Config:    cfg,
		StartTime: time.Now(),
	}

	rm.runs[run.ID] = run
	return run.snapshot()
}

// GetRun returns a snapshot of a run
func (rm *RunManager) GetRun(id string) (Run, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	run, exists := rm.runs[id]
	if !exists {
		return Run{}, false
	}
	return run.snapshot(), true
}

// ListRuns returns snapshots of all runs
func (rm *RunManager) ListRuns() []Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	runs := make([]Run, 0, len(rm.runs))
	for _, run := range rm.runs {
		runs = append(runs, run.snapshot())
	}
	return runs
}

// UpdateRun atomically updates a run using the provided function
func (rm *RunManager) UpdateRun(id string, updateFn func(*Run)) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	run, exists := rm.runs[id]
	if !exists {
		return fmt.Errorf("run not found: %s", id)
	}

	updateFn(run)
	return nil
}

// ActiveRuns returns the number of runs currently executing
func (rm *RunManager) ActiveRuns() int64 {
	return rm.active.Load()
}

func (r *Run) snapshot() Run {
	c := *r
	if r.Incumbent != nil {
		c.Incumbent = append([]float64(nil), r.Incumbent...)
	}
	if r.EndTime != nil {
		end := *r.EndTime
		c.EndTime = &end
	}
	return c
}
