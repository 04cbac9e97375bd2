package store

import (
	"context"
	"errors"
	"testing"
)

func sampleState(nodeID string) ExecutionState {
	return ExecutionState{
		Inputs:          map[string]any{"numbers": []any{2.0, 3.0}},
		Outputs:         map[string]any{nodeID: "done"},
		Variables:       map[string]any{},
		NodeStatuses:    map[string]string{nodeID: "completed"},
		EdgeActivations: map[string]string{"e1": "active"},
	}
}

func TestMemStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	t.Run("unknown execution returns ErrNotFound", func(t *testing.T) {
		if _, _, err := s.LoadLatest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.Steps(ctx, "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("latest follows the highest step number", func(t *testing.T) {
		if err := s.SaveStep(ctx, "run-1", 2, "b", sampleState("b")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := s.SaveStep(ctx, "run-1", 1, "a", sampleState("a")); err != nil {
			t.Fatalf("save: %v", err)
		}

		state, step, err := s.LoadLatest(ctx, "run-1")
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if step != 2 {
			t.Errorf("expected step 2, got %d", step)
		}
		if state.Outputs["b"] != "done" {
			t.Errorf("expected state of step 2, got %v", state.Outputs)
		}
	})

	t.Run("steps sorted by step number", func(t *testing.T) {
		records, err := s.Steps(ctx, "run-1")
		if err != nil {
			t.Fatalf("steps: %v", err)
		}
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if records[0].Step != 1 || records[0].NodeID != "a" {
			t.Errorf("expected step 1 / node a first, got %d / %s", records[0].Step, records[0].NodeID)
		}
		if records[1].Step != 2 || records[1].NodeID != "b" {
			t.Errorf("expected step 2 / node b second, got %d / %s", records[1].Step, records[1].NodeID)
		}
	})

	t.Run("executions are isolated", func(t *testing.T) {
		if err := s.SaveStep(ctx, "run-2", 1, "x", sampleState("x")); err != nil {
			t.Fatalf("save: %v", err)
		}
		records, err := s.Steps(ctx, "run-2")
		if err != nil || len(records) != 1 {
			t.Errorf("expected 1 record for run-2, got %d (%v)", len(records), err)
		}
	})
}
