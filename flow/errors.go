package flow

import "errors"

// ErrNoProgress indicates the scheduler found no ready nodes while the
// execution was not complete. With a validated graph this means every
// remaining node is unreachable in a way skip propagation could not resolve,
// which is a scheduler bug rather than a workflow authoring error.
var ErrNoProgress = errors.New("no runnable nodes but execution is not complete")

// ErrMaxStepsExceeded indicates execution reached the maximum allowed number
// of scheduling rounds without completing.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum scheduling rounds")

// ErrNoHandler indicates no registered handler accepts a node's type.
var ErrNoHandler = errors.New("no handler registered for node type")

// ErrMissingLoopBody indicates a loop node has no body subgraph attached.
var ErrMissingLoopBody = errors.New("loop node has no body subgraph")

// EngineError represents a structured error from graph construction or
// execution.
type EngineError struct {
	Message string
	Code    string
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
