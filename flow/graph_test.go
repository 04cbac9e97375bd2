package flow

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildValidation(t *testing.T) {
	t.Run("duplicate node ID", func(t *testing.T) {
		_, err := NewBuilder().
			AddNode("a", NodeInput, "", nil).
			AddNode("a", NodeInput, "", nil).
			Build()
		assertEngineErrorCode(t, err, "DUPLICATE_NODE")
	})

	t.Run("dangling edge", func(t *testing.T) {
		_, err := NewBuilder().
			AddNode("a", NodeInput, "", nil).
			AddEdge("e1", "a", "missing", HandleDefault).
			Build()
		assertEngineErrorCode(t, err, "DANGLING_EDGE")
	})

	t.Run("no trigger", func(t *testing.T) {
		_, err := NewBuilder().
			AddNode("a", NodeTransform, "", nil).
			AddNode("b", NodeTransform, "", nil).
			AddEdge("e1", "a", "b", HandleDefault).
			AddEdge("e2", "b", "a", HandleDefault).
			Build()
		assertEngineErrorCode(t, err, "NO_TRIGGER")
	})

	t.Run("cycle", func(t *testing.T) {
		_, err := NewBuilder().
			AddNode("start", NodeInput, "", nil).
			AddNode("a", NodeTransform, "", nil).
			AddNode("b", NodeTransform, "", nil).
			AddEdge("e1", "start", "a", HandleDefault).
			AddEdge("e2", "a", "b", HandleDefault).
			AddEdge("e3", "b", "a", HandleDefault).
			Build()
		assertEngineErrorCode(t, err, "CYCLIC_GRAPH")
	})

	t.Run("unknown output node", func(t *testing.T) {
		_, err := NewBuilder().
			AddNode("a", NodeInput, "", nil).
			Outputs("missing").
			Build()
		assertEngineErrorCode(t, err, "NODE_NOT_FOUND")
	})

	t.Run("loop body on non-loop node", func(t *testing.T) {
		body, err := NewBuilder().AddNode("inner", NodeTransform, "", nil).Build()
		if err != nil {
			t.Fatalf("failed to build body: %v", err)
		}
		_, err = NewBuilder().
			AddNode("a", NodeTransform, "", nil).
			LoopBody("a", body).
			Build()
		assertEngineErrorCode(t, err, "INVALID_LOOP_BODY")
	})

	t.Run("loop body node ID collides with parent", func(t *testing.T) {
		body, err := NewBuilder().AddNode("shared", NodeTransform, "", nil).Build()
		if err != nil {
			t.Fatalf("failed to build body: %v", err)
		}
		_, err = NewBuilder().
			AddNode("loop", NodeLoop, "", nil).
			AddNode("shared", NodeTransform, "", nil).
			AddEdge("e1", "loop", "shared", HandleDefault).
			LoopBody("loop", body).
			Build()
		assertEngineErrorCode(t, err, "INVALID_LOOP_BODY")
	})
}

func assertEngineErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	var engErr *EngineError
	if !errors.As(err, &engErr) {
		t.Fatalf("expected EngineError, got %T: %v", err, err)
	}
	if engErr.Code != code {
		t.Errorf("expected code %s, got %s", code, engErr.Code)
	}
}

func TestDerivedTopology(t *testing.T) {
	g := buildGraph(t, NewBuilder().
		AddNode("input", NodeInput, "", nil).
		AddNode("left", NodeTransform, "", nil).
		AddNode("right", NodeTransform, "", nil).
		AddNode("merge", NodeTransform, "", nil).
		AddEdge("e1", "input", "left", HandleDefault).
		AddEdge("e2", "input", "right", HandleDefault).
		AddEdge("e3", "left", "merge", HandleDefault).
		AddEdge("e4", "right", "merge", HandleDefault).
		Outputs("merge"))

	t.Run("dependencies derived from edges", func(t *testing.T) {
		if got := g.Node("merge").Dependencies; !reflect.DeepEqual(got, []string{"left", "right"}) {
			t.Errorf("expected merge deps [left right], got %v", got)
		}
		if got := g.Node("input").Dependents; !reflect.DeepEqual(got, []string{"left", "right"}) {
			t.Errorf("expected input dependents [left right], got %v", got)
		}
	})

	t.Run("triggers", func(t *testing.T) {
		if got := g.Triggers(); !reflect.DeepEqual(got, []string{"input"}) {
			t.Errorf("expected [input], got %v", got)
		}
	})

	t.Run("topological levels", func(t *testing.T) {
		want := [][]string{{"input"}, {"left", "right"}, {"merge"}}
		if got := g.Levels(); !reflect.DeepEqual(got, want) {
			t.Errorf("expected levels %v, got %v", want, got)
		}
	})

	t.Run("parallel edges dedupe dependencies", func(t *testing.T) {
		g2 := buildGraph(t, NewBuilder().
			AddNode("a", NodeAction, "", nil).
			AddNode("b", NodeTransform, "", nil).
			AddEdge("e1", "a", "b", HandleDefault).
			AddEdge("e2", "a", "b", HandleError))
		if got := g2.Node("b").Dependencies; !reflect.DeepEqual(got, []string{"a"}) {
			t.Errorf("expected single dependency, got %v", got)
		}
		if got := len(g2.Incoming("b")); got != 2 {
			t.Errorf("expected both edges indexed, got %d", got)
		}
	})
}
