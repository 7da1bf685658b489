package store

import (
	"time"

	"github.com/cwbudde/bayesopt/internal/config"
)

// Sink adapts a Store to solver.CheckpointSink for a single run.
//
// The solver numbers iterations per Run call. Offset shifts them so that a
// resumed run keeps counting where the previous one stopped.
type Sink struct {
	Store  Store
	RunID  string
	Config config.RunConfig
	Offset int
}

// SaveIteration implements solver.CheckpointSink.
func (s *Sink) SaveIteration(iteration int, hyperparameters []float64, acquisitionValue *float64) error {
	absolute := s.Offset + iteration
	cp := &Checkpoint{
		RunID:            s.RunID,
		Iteration:        absolute,
		Hyperparameters:  hyperparameters,
		AcquisitionValue: acquisitionValue,
		Observations:     s.Config.InitPoints + absolute,
		Timestamp:        time.Now(),
		Config:           s.Config,
	}
	if err := cp.Validate(); err != nil {
		return err
	}
	return s.Store.SaveCheckpoint(s.RunID, cp)
}
