package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogEmitter(t *testing.T) {
	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, false)
		e.Emit(Event{ExecutionID: "exec-1", Step: 2, NodeID: "sum", Msg: MsgNodeCompleted, Meta: map[string]any{"duration_ms": 5}})

		out := buf.String()
		if !strings.Contains(out, "[node_completed]") {
			t.Errorf("expected message tag in %q", out)
		}
		if !strings.Contains(out, "executionID=exec-1") || !strings.Contains(out, "nodeID=sum") {
			t.Errorf("expected identifiers in %q", out)
		}
		if !strings.Contains(out, `"duration_ms":5`) {
			t.Errorf("expected meta in %q", out)
		}
	})

	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		e := NewLogEmitter(&buf, true)
		e.Emit(Event{ExecutionID: "exec-1", Step: 1, NodeID: "a", Msg: MsgNodeStart})

		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v (%q)", err, buf.String())
		}
		if decoded["msg"] != "node_start" || decoded["executionID"] != "exec-1" {
			t.Errorf("unexpected decoded event: %v", decoded)
		}
	})
}

func TestBufferedEmitter(t *testing.T) {
	e := NewBufferedEmitter()
	e.Emit(Event{ExecutionID: "exec-1", Step: 1, NodeID: "a", Msg: MsgNodeStart})
	e.Emit(Event{ExecutionID: "exec-1", Step: 1, NodeID: "a", Msg: MsgNodeCompleted})
	e.Emit(Event{ExecutionID: "exec-1", Step: 2, NodeID: "b", Msg: MsgNodeFailed})
	e.Emit(Event{ExecutionID: "exec-2", Step: 1, NodeID: "x", Msg: MsgNodeStart})

	t.Run("history is per execution and ordered", func(t *testing.T) {
		events := e.History("exec-1")
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[0].Msg != MsgNodeStart || events[2].Msg != MsgNodeFailed {
			t.Errorf("unexpected ordering: %v", events)
		}
	})

	t.Run("filter by node and message", func(t *testing.T) {
		got := e.HistoryWithFilter("exec-1", HistoryFilter{NodeID: "a", Msg: MsgNodeCompleted})
		if len(got) != 1 || got[0].Msg != MsgNodeCompleted {
			t.Errorf("unexpected filtered events: %v", got)
		}
	})

	t.Run("filter by step range", func(t *testing.T) {
		min, max := 2, 2
		got := e.HistoryWithFilter("exec-1", HistoryFilter{MinStep: &min, MaxStep: &max})
		if len(got) != 1 || got[0].NodeID != "b" {
			t.Errorf("unexpected filtered events: %v", got)
		}
	})

	t.Run("clear drops one execution only", func(t *testing.T) {
		e.Clear("exec-1")
		if len(e.History("exec-1")) != 0 {
			t.Error("expected exec-1 history cleared")
		}
		if len(e.History("exec-2")) != 1 {
			t.Error("expected exec-2 history intact")
		}
	})
}
