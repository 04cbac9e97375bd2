package flow

import (
	"reflect"
	"testing"
)

const workflowDoc = `{
  "name": "threshold-routing",
  "nodes": [
    {"id": "input", "type": "input", "name": "Input"},
    {"id": "cond", "type": "conditional", "config": {"sum": "{{sum}}", "threshold": 8}},
    {"id": "high", "type": "transform"},
    {"id": "low", "type": "transform"}
  ],
  "edges": [
    {"id": "e1", "source": "input", "target": "cond"},
    {"id": "e2", "source": "cond", "target": "high", "handle": "true"},
    {"source": "cond", "target": "low", "handle": "false"}
  ],
  "outputs": ["high", "low"],
  "maxConcurrentNodes": 4
}`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(workflowDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Name != "threshold-routing" {
		t.Errorf("expected name threshold-routing, got %q", def.Name)
	}
	if len(def.Nodes) != 4 || len(def.Edges) != 3 {
		t.Errorf("expected 4 nodes / 3 edges, got %d / %d", len(def.Nodes), len(def.Edges))
	}

	t.Run("malformed document", func(t *testing.T) {
		if _, err := ParseDefinition([]byte("{not json")); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestBuildGraphFromDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(workflowDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := def.BuildGraph()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("empty handle defaults", func(t *testing.T) {
		if got := g.Edge("e1").Handle; got != HandleDefault {
			t.Errorf("expected default handle, got %q", got)
		}
	})

	t.Run("empty edge ID synthesized", func(t *testing.T) {
		if g.Edge("edge-2") == nil {
			t.Errorf("expected synthesized edge-2, have %v", g.EdgeIDs())
		}
	})

	t.Run("outputs and concurrency carried over", func(t *testing.T) {
		if got := g.OutputNodeIDs(); !reflect.DeepEqual(got, []string{"high", "low"}) {
			t.Errorf("expected outputs [high low], got %v", got)
		}
		if got := g.MaxConcurrentNodes(); got != 4 {
			t.Errorf("expected maxConcurrent 4, got %d", got)
		}
	})
}

func TestBuildGraphWithLoopBodies(t *testing.T) {
	doc := `{
	  "name": "looped",
	  "nodes": [
	    {"id": "loop", "type": "loop", "config": {"items": "{{items}}"}}
	  ],
	  "edges": [],
	  "outputs": ["loop"],
	  "loopBodies": {
	    "loop": {
	      "nodes": [{"id": "body", "type": "transform"}],
	      "edges": [],
	      "outputs": ["body"]
	    }
	  }
	}`

	def, err := ParseDefinition([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	g, err := def.BuildGraph()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := g.LoopBody("loop")
	if body == nil {
		t.Fatal("expected loop body graph")
	}
	if !reflect.DeepEqual(body.OutputNodeIDs(), []string{"body"}) {
		t.Errorf("expected body output [body], got %v", body.OutputNodeIDs())
	}
}
