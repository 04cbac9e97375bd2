package flow

import (
	"context"
	"fmt"
	"strconv"

	"github.com/flowmaestro/flowmaestro-go/flow/emit"
)

// LoopState describes one iteration of a loop node. It is published to the
// body subgraph as the ephemeral "loop" variable and is not persisted beyond
// the iteration.
type LoopState struct {
	Index   int   `json:"index"`
	Item    any   `json:"item"`
	Total   int   `json:"total"`
	Results []any `json:"results"`
	IsFirst bool  `json:"isFirst"`
	IsLast  bool  `json:"isLast"`
}

// asVariable renders the loop state as the structured value bound to the
// "loop" variable, so body templates can read {{loop.item}}, {{loop.index}}
// and so on.
func (l LoopState) asVariable() map[string]any {
	results := make([]any, len(l.Results))
	copy(results, l.Results)
	return map[string]any{
		"index":   l.Index,
		"item":    l.Item,
		"total":   l.Total,
		"results": results,
		"isFirst": l.IsFirst,
		"isLast":  l.IsLast,
	}
}

// runLoop drives a loop node: it resolves the input sequence, executes the
// body subgraph once per item strictly in order, and collects the ordered
// iteration outputs.
//
// Each iteration's body output is stored under a synthesized ID
// ("<bodyOutputID>_<i>") so history never overwrites, and iteration i can
// read iteration i-1's stored output for running aggregation. A zero-length
// input sequence completes immediately with an empty result and never blocks
// downstream nodes.
func (e *Engine) runLoop(ctx context.Context, run *runState, g *Graph, node *Node, snap Snapshot, step int) outcome {
	oc := outcome{nodeID: node.ID}

	body := g.LoopBody(node.ID)
	if body == nil {
		oc.err = fmt.Errorf("node %s: %w", node.ID, ErrMissingLoopBody)
		return oc
	}

	config, err := resolveConfig(e.templater, node.Config, snap.ExecutionContext())
	if err != nil {
		oc.err = fmt.Errorf("node %s: config resolution: %w", node.ID, err)
		return oc
	}

	items, err := loopItems(config)
	if err != nil {
		oc.err = fmt.Errorf("node %s: %w", node.ID, err)
		return oc
	}

	total := len(items)
	results := make([]any, 0, total)
	local := snap

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			oc.err = err
			return oc
		}

		state := LoopState{
			Index:   i,
			Item:    item,
			Total:   total,
			Results: results,
			IsFirst: i == 0,
			IsLast:  i == total-1,
		}
		local = local.SetVariable("loop", state.asVariable())

		bodyQueue := InitializeQueue(body)
		bodySnap, bodyQueue, _, err := e.execute(ctx, run, body, local, bodyQueue)
		if err != nil {
			oc.err = fmt.Errorf("loop %s iteration %d: %w", node.ID, i, err)
			return oc
		}
		if err := outputFailure(body, bodySnap, bodyQueue); err != nil {
			oc.err = fmt.Errorf("loop %s iteration %d: %w", node.ID, i, err)
			return oc
		}

		// Publish this iteration's outputs under synthesized IDs so the next
		// iteration (and downstream nodes) can reference them.
		for _, outID := range body.OutputNodeIDs() {
			if v, ok := bodySnap.NodeOutput(outID); ok {
				synthesized := outID + "_" + strconv.Itoa(i)
				local = local.StoreNodeOutput(synthesized, v)
				oc.iterationOutputs = append(oc.iterationOutputs, iterationOutput{nodeID: synthesized, output: v})
			}
		}

		results = append(results, iterationResult(body, bodySnap))

		e.metrics.LoopIteration()
		e.emitter.Emit(emit.Event{
			ExecutionID: run.executionID,
			Step:        step,
			NodeID:      node.ID,
			Msg:         emit.MsgLoopIteration,
			Meta:        map[string]any{"iteration": i, "total": total},
		})
	}

	oc.variables = map[string]any{"loopResults": results}
	oc.result = Result{Output: results}
	return oc
}

// loopItems extracts the ordered input sequence from the resolved loop
// configuration. The "items" key must resolve to an array.
func loopItems(config map[string]any) ([]any, error) {
	raw, ok := config["items"]
	if !ok {
		return nil, &EngineError{Message: "loop config has no items", Code: "INVALID_LOOP_CONFIG"}
	}
	if raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &EngineError{Message: fmt.Sprintf("loop items must be an array, got %T", raw), Code: "INVALID_LOOP_CONFIG"}
	}
	return items, nil
}

// iterationResult extracts one iteration's output from the completed body
// subgraph: a single declared output node yields its value verbatim, several
// yield a map keyed by node ID, and a body with no declared outputs yields
// every output its nodes stored.
func iterationResult(body *Graph, snap Snapshot) any {
	outs := body.OutputNodeIDs()
	switch len(outs) {
	case 0:
		all := make(map[string]any)
		for _, id := range body.NodeIDs() {
			if v, ok := snap.NodeOutput(id); ok {
				all[id] = v
			}
		}
		return all
	case 1:
		v, _ := snap.NodeOutput(outs[0])
		return v
	default:
		return snap.FinalOutputs(outs)
	}
}
