package handlers

import (
	"context"
	"fmt"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

// Switch executes switch nodes: it matches an expression against an ordered
// case list and selects the winning route.
//
// Configuration:
//   - expression: the value to match (stringified if not already a string)
//   - cases: ordered array of {value, route} objects; value may contain
//     `*` and `?` wildcards, route defaults to value when omitted
//   - defaultRoute: route selected when no case matches (optional)
//
// Matching is case-insensitive and first-match-wins in declaration order.
type Switch struct{}

// NewSwitch creates the switch node handler.
func NewSwitch() *Switch {
	return &Switch{}
}

// CanHandle implements flow.Handler.
func (s *Switch) CanHandle(t flow.NodeType) bool {
	return t == flow.NodeSwitch
}

// Execute implements flow.Handler.
func (s *Switch) Execute(_ context.Context, req flow.Request) (flow.Result, error) {
	cases, err := switchCases(req.Config)
	if err != nil {
		return flow.Result{}, fmt.Errorf("switch node %s: %w", req.NodeID, err)
	}

	input := asString(req.Config["expression"])
	defaultRoute, _ := req.Config["defaultRoute"].(string)

	outcome := flow.EvaluateSwitch(input, cases, defaultRoute)
	return flow.Result{
		Output: map[string]any{
			"route":   outcome.Route,
			"matched": outcome.Matched,
		},
		Signals: flow.Signals{SelectedRoute: outcome.Route},
	}, nil
}

func switchCases(config map[string]any) ([]flow.SwitchCase, error) {
	raw, ok := config["cases"]
	if !ok {
		return nil, fmt.Errorf("config has no cases")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("cases must be an array, got %T", raw)
	}

	cases := make([]flow.SwitchCase, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("case %d must be an object, got %T", i, entry)
		}
		value, _ := obj["value"].(string)
		route, _ := obj["route"].(string)
		if route == "" {
			route = value
		}
		cases = append(cases, flow.SwitchCase{Value: value, Route: route})
	}
	return cases, nil
}
