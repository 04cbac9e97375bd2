package store

import (
	"context"
	"sort"
	"sync"
)

// MemStore is an in-memory RunStore.
//
// Designed for testing and single-process executions; data is lost when the
// process terminates. Thread-safe.
type MemStore struct {
	mu    sync.RWMutex
	steps map[string][]StepRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{steps: make(map[string][]StepRecord)}
}

// SaveStep appends the step to the execution's history.
func (m *MemStore) SaveStep(_ context.Context, executionID string, step int, nodeID string, state ExecutionState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.steps[executionID] = append(m.steps[executionID], StepRecord{
		Step:   step,
		NodeID: nodeID,
		State:  state,
	})
	return nil
}

// LoadLatest returns the record with the highest step number, which handles
// out-of-order saves correctly.
func (m *MemStore) LoadLatest(_ context.Context, executionID string) (ExecutionState, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[executionID]
	if len(records) == 0 {
		return ExecutionState{}, 0, ErrNotFound
	}

	latest := records[0]
	for _, r := range records[1:] {
		if r.Step > latest.Step {
			latest = r
		}
	}
	return latest.State, latest.Step, nil
}

// Steps returns the execution's history sorted by step number.
func (m *MemStore) Steps(_ context.Context, executionID string) ([]StepRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := m.steps[executionID]
	if len(records) == 0 {
		return nil, ErrNotFound
	}

	out := make([]StepRecord, len(records))
	copy(out, records)
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out, nil
}
