// Package store provides persistence for workflow execution state.
//
// The scheduler itself is a pure state machine over immutable values; a
// RunStore is the hook a durable-execution substrate uses to persist each
// applied step so an execution can be replayed or resumed across process
// restarts without re-deriving intermediate states.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested execution ID does not exist.
var ErrNotFound = errors.New("not found")

// ExecutionState is the persisted projection of one execution step: the
// context snapshot contents plus the queue state maps. Everything is
// JSON-serializable.
type ExecutionState struct {
	Inputs          map[string]any    `json:"inputs"`
	Outputs         map[string]any    `json:"outputs"`
	Variables       map[string]any    `json:"variables"`
	NodeStatuses    map[string]string `json:"node_statuses"`
	EdgeActivations map[string]string `json:"edge_activations"`
}

// StepRecord is one persisted step of an execution.
type StepRecord struct {
	Step   int
	NodeID string
	State  ExecutionState
}

// RunStore persists execution state step by step.
//
// Implementations:
//   - MemStore: in-memory, for tests and single-process runs
//   - SQLiteStore: single-file database, zero-setup local persistence
//   - MySQLStore: shared database for multi-process deployments
type RunStore interface {
	// SaveStep persists the state after one scheduling round applied a
	// node's result. Steps are identified by executionID + step number;
	// nodeID names the node whose result produced this state.
	SaveStep(ctx context.Context, executionID string, step int, nodeID string, state ExecutionState) error

	// LoadLatest retrieves the most recent persisted state for an
	// execution. Returns ErrNotFound for an unknown execution ID.
	LoadLatest(ctx context.Context, executionID string) (ExecutionState, int, error)

	// Steps returns the full persisted history of an execution in step
	// order. Returns ErrNotFound for an unknown execution ID.
	Steps(ctx context.Context, executionID string) ([]StepRecord, error)
}
