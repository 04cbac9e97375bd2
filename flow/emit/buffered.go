package emit

import "sync"

// BufferedEmitter stores events in memory, organized by execution ID, with
// query support. Intended for tests, debugging and post-execution analysis;
// memory grows with event volume, so production deployments should prefer a
// persistent backend.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[string][]Event
}

// HistoryFilter selects a subset of an execution's events. All fields are
// optional and combined with AND logic.
type HistoryFilter struct {
	NodeID  string // filter by node ID (empty = no filter)
	Msg     string // filter by message (empty = no filter)
	MinStep *int   // minimum step (nil = no lower bound)
	MaxStep *int   // maximum step (nil = no upper bound)
}

// NewBufferedEmitter creates an empty in-memory emitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[string][]Event)}
}

// Emit appends the event to its execution's history.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.ExecutionID] = append(b.events[event.ExecutionID], event)
}

// History returns all events recorded for an execution, in emission order.
func (b *BufferedEmitter) History(executionID string) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	events := b.events[executionID]
	out := make([]Event, len(events))
	copy(out, events)
	return out
}

// HistoryWithFilter returns the events matching the filter, in emission
// order.
func (b *BufferedEmitter) HistoryWithFilter(executionID string, filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, e := range b.events[executionID] {
		if filter.NodeID != "" && e.NodeID != filter.NodeID {
			continue
		}
		if filter.Msg != "" && e.Msg != filter.Msg {
			continue
		}
		if filter.MinStep != nil && e.Step < *filter.MinStep {
			continue
		}
		if filter.MaxStep != nil && e.Step > *filter.MaxStep {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Clear drops all events for an execution.
func (b *BufferedEmitter) Clear(executionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, executionID)
}

// ClearAll drops every recorded event.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[string][]Event)
}
