// Package emit provides observability events for workflow execution.
package emit

// Standard event messages emitted by the scheduler.
const (
	MsgNodeStart     = "node_start"
	MsgNodeCompleted = "node_completed"
	MsgNodeFailed    = "node_failed"
	MsgNodeSkipped   = "node_skipped"
	MsgLoopIteration = "loop_iteration"
	MsgRunStarted    = "run_started"
	MsgRunCompleted  = "run_completed"
)

// Event is an observability event emitted during workflow execution: node
// lifecycle transitions, loop iterations, and run start/completion.
type Event struct {
	// ExecutionID identifies the workflow execution that emitted this event.
	ExecutionID string

	// Step is the scheduling round that produced the event (1-indexed).
	// Zero for run-level events.
	Step int

	// NodeID identifies which node the event concerns. Empty for run-level
	// events.
	NodeID string

	// Msg is the event kind; use the Msg* constants.
	Msg string

	// Meta contains additional structured data. Common keys:
	//   - "duration_ms": handler execution duration in milliseconds
	//   - "tokens_used": LLM token usage reported by the handler
	//   - "error": failure message for node_failed
	//   - "route": selected route for branch-selecting nodes
	//   - "iteration" / "total": loop progress
	Meta map[string]any
}
