package store

import (
	"testing"

	"github.com/cwbudde/bayesopt/internal/config"
	"github.com/cwbudde/bayesopt/internal/solver"
)

var _ solver.CheckpointSink = (*Sink)(nil)

func TestSinkSavesIteration(t *testing.T) {
	store, _ := setupTestStore(t)

	cfg := config.Default()
	sink := &Sink{Store: store, RunID: "sink-run", Config: cfg}

	zero := 0.0
	if err := sink.SaveIteration(0, nil, &zero); err != nil {
		t.Fatalf("SaveIteration(0) failed: %v", err)
	}

	cp, err := store.LoadCheckpoint("sink-run")
	if err != nil {
		t.Fatal(err)
	}
	if cp.Iteration != 0 || cp.Observations != cfg.InitPoints {
		t.Errorf("Unexpected checkpoint: iteration=%d observations=%d", cp.Iteration, cp.Observations)
	}
	if cp.AcquisitionValue == nil || *cp.AcquisitionValue != 0 {
		t.Errorf("Expected acquisition value 0, got %v", cp.AcquisitionValue)
	}

	acq := 0.3
	if err := sink.SaveIteration(4, []float64{1, 2, 3}, &acq); err != nil {
		t.Fatalf("SaveIteration(4) failed: %v", err)
	}
	cp, err = store.LoadCheckpoint("sink-run")
	if err != nil {
		t.Fatal(err)
	}
	if cp.Iteration != 4 || len(cp.Hyperparameters) != 3 {
		t.Errorf("Unexpected checkpoint: %+v", cp)
	}
}

func TestSinkOffset(t *testing.T) {
	store, _ := setupTestStore(t)

	cfg := config.Default()
	sink := &Sink{Store: store, RunID: "resumed", Config: cfg, Offset: 9}

	if err := sink.SaveIteration(2, nil, nil); err != nil {
		t.Fatal(err)
	}
	cp, err := store.LoadCheckpoint("resumed")
	if err != nil {
		t.Fatal(err)
	}
	if cp.Iteration != 11 {
		t.Errorf("Expected iteration 11, got %d", cp.Iteration)
	}
	if cp.Observations != cfg.InitPoints+11 {
		t.Errorf("Expected %d observations, got %d", cfg.InitPoints+11, cp.Observations)
	}
}

func TestSinkRejectsInvalidCheckpoint(t *testing.T) {
	store, _ := setupTestStore(t)

	sink := &Sink{Store: store, RunID: "", Config: config.Default()}
	if err := sink.SaveIteration(1, nil, nil); err == nil {
		t.Error("Expected error for empty run ID")
	}
}
