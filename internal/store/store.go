package store

import "fmt"

// Store defines the interface for checkpoint persistence operations.
// Implementations must be safe for concurrent use.
//
// Error handling conventions:
//   - Return ErrNotFound if a checkpoint doesn't exist (for Load/Delete)
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveCheckpoint saves the checkpoint for the given run, replacing any
	// previous one.
	SaveCheckpoint(runID string, checkpoint *Checkpoint) error

	// LoadCheckpoint retrieves the latest checkpoint for the given run.
	LoadCheckpoint(runID string) (*Checkpoint, error)

	// ListCheckpoints returns metadata for all available checkpoints.
	ListCheckpoints() ([]CheckpointInfo, error)

	// DeleteCheckpoint removes the checkpoint and the run's trace.
	DeleteCheckpoint(runID string) error
}

// Store kinds accepted by NewStore.
const (
	KindFS     = "fs"
	KindSQLite = "sqlite"
)

// NewStore creates a store. dir holds run directories (traces, and
// checkpoints for the fs kind); sqlitePath is the database for the sqlite
// kind.
func NewStore(kind, dir, sqlitePath string) (Store, error) {
	switch kind {
	case "", KindFS:
		fs, err := NewFSStore(dir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case KindSQLite:
		db, err := NewSQLiteStore(sqlitePath, dir)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// CloseIfSupported closes stores that hold resources.
func CloseIfSupported(s Store) error {
	closer, ok := s.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// ErrNotFound is returned when a requested checkpoint does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing checkpoint error.
type NotFoundError struct {
	RunID string
}

func (e *NotFoundError) Error() string {
	if e.RunID != "" {
		return "checkpoint not found: " + e.RunID
	}
	return "checkpoint not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
