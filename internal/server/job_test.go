package server

import (
	"sync"
	"testing"

	"github.com/cwbudde/bayesopt/internal/config"
)

func TestRunManager_CreateRun(t *testing.T) {
	rm := NewRunManager()

	cfg := config.Default()
	cfg.Task.Name = "forrester"

	run := rm.CreateRun(cfg)

	if run.ID == "" {
		t.Error("Run ID should not be empty")
	}
	if run.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", run.State)
	}
	if run.Config.Task.Name != "forrester" {
		t.Errorf("Config not set correctly")
	}
}

func TestRunManager_GetRun(t *testing.T) {
	rm := NewRunManager()
	run := rm.CreateRun(config.Default())

	retrieved, exists := rm.GetRun(run.ID)
	if !exists {
		t.Fatal("Run should exist")
	}
	if retrieved.ID != run.ID {
		t.Error("Retrieved wrong run")
	}

	if _, exists := rm.GetRun("nonexistent"); exists {
		t.Error("Should not find nonexistent run")
	}
}

func TestRunManager_GetRunReturnsSnapshot(t *testing.T) {
	rm := NewRunManager()
	run := rm.CreateRun(config.Default())

	rm.UpdateRun(run.ID, func(r *Run) {
		r.Incumbent = []float64{0.5, 0.5}
	})

	snap, _ := rm.GetRun(run.ID)
	snap.Incumbent[0] = 99

	again, _ := rm.GetRun(run.ID)
	if again.Incumbent[0] != 0.5 {
		t.Errorf("Snapshot mutation leaked into manager: %v", again.Incumbent)
	}
}

func TestRunManager_ListRuns(t *testing.T) {
	rm := NewRunManager()

	if len(rm.ListRuns()) != 0 {
		t.Error("Should start with no runs")
	}

	rm.CreateRun(config.Default())
	rm.CreateRun(config.Default())

	if n := len(rm.ListRuns()); n != 2 {
		t.Errorf("Expected 2 runs, got %d", n)
	}
}

func TestRunManager_UpdateRun(t *testing.T) {
	rm := NewRunManager()
	run := rm.CreateRun(config.Default())

	err := rm.UpdateRun(run.ID, func(r *Run) {
		r.State = StateRunning
		r.Iteration = 3
		r.IncumbentValue = 1.25
	})
	if err != nil {
		t.Fatalf("UpdateRun failed: %v", err)
	}

	updated, _ := rm.GetRun(run.ID)
	if updated.State != StateRunning {
		t.Errorf("Expected running state, got %s", updated.State)
	}
	if updated.Iteration != 3 || updated.IncumbentValue != 1.25 {
		t.Errorf("Update not applied: %+v", updated)
	}

	if err := rm.UpdateRun("nonexistent", func(r *Run) {}); err == nil {
		t.Error("Expected error for nonexistent run")
	}
}

func TestRunManager_ThreadSafety(t *testing.T) {
	rm := NewRunManager()
	run := rm.CreateRun(config.Default())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			rm.UpdateRun(run.ID, func(r *Run) {
				r.Iteration = n
			})
		}(i)
		go func() {
			defer wg.Done()
			rm.GetRun(run.ID)
			rm.ListRuns()
		}()
	}
	wg.Wait()
}

func TestRunManager_ActiveRuns(t *testing.T) {
	rm := NewRunManager()

	if rm.ActiveRuns() != 0 {
		t.Errorf("Expected 0 active runs, got %d", rm.ActiveRuns())
	}

	rm.active.Inc()
	rm.active.Inc()
	rm.active.Dec()

	if rm.ActiveRuns() != 1 {
		t.Errorf("Expected 1 active run, got %d", rm.ActiveRuns())
	}
}
