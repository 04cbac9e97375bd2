package handlers

import (
	"context"
	"fmt"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

// Transform executes transform nodes: it shapes data by emitting its
// resolved mapping.
//
// Configuration:
//   - mapping: the value to emit (required); usually an object whose fields
//     carry {{Path.To.Value}} placeholders that the engine resolved before
//     dispatch
//
// A transform node performs no I/O. All of its work happens in template
// resolution; the handler only republishes the result.
type Transform struct{}

// NewTransform creates the transform node handler.
func NewTransform() *Transform {
	return &Transform{}
}

// CanHandle implements flow.Handler.
func (t *Transform) CanHandle(nt flow.NodeType) bool {
	return nt == flow.NodeTransform
}

// Execute implements flow.Handler.
func (t *Transform) Execute(_ context.Context, req flow.Request) (flow.Result, error) {
	mapping, ok := req.Config["mapping"]
	if !ok {
		return flow.Result{}, fmt.Errorf("transform node %s: config has no mapping", req.NodeID)
	}
	return flow.Result{Output: mapping}, nil
}
