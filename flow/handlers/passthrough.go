package handlers

import (
	"context"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

// Passthrough executes input and output nodes.
//
// Configuration:
//   - value: the node's output (optional)
//
// With no configured value, an input node emits the workflow inputs and an
// output node emits nil. Because configuration is template-resolved before
// dispatch, an output node typically carries a value like
// {{upstream.result}} and simply republishes it under its own node ID.
type Passthrough struct{}

// NewPassthrough creates the input/output node handler.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// CanHandle implements flow.Handler.
func (p *Passthrough) CanHandle(t flow.NodeType) bool {
	return t == flow.NodeInput || t == flow.NodeOutput
}

// Execute implements flow.Handler.
func (p *Passthrough) Execute(_ context.Context, req flow.Request) (flow.Result, error) {
	if v, ok := req.Config["value"]; ok {
		return flow.Result{Output: v}, nil
	}
	if req.NodeType == flow.NodeInput {
		return flow.Result{Output: req.Snapshot.Inputs()}, nil
	}
	return flow.Result{}, nil
}
