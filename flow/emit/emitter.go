package emit

// Emitter receives observability events from workflow execution.
//
// Implementations should be:
//   - Non-blocking: never slow down the scheduling loop
//   - Thread-safe: nodes complete concurrently
//   - Resilient: a failing backend must not fail the workflow
type Emitter interface {
	// Emit sends an event to the configured backend. Emit must not panic;
	// backend errors are handled internally.
	Emit(event Event)
}
