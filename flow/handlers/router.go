package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowmaestro/flowmaestro-go/flow"
	"github.com/flowmaestro/flowmaestro-go/flow/model"
)

// Router executes router nodes: it asks a chat model to classify free-text
// input into one of the configured routes and selects that route.
//
// Configuration:
//   - input: the text to classify (required)
//   - routes: array of {name, description} objects naming the candidate
//     routes (required)
//   - defaultRoute: route selected when classification fails or returns an
//     unknown route (optional; falls back to the first configured route)
//
// The classifier's confidence and reasoning are informational: they are
// emitted in the node output but never block activation. An unparseable
// response or unknown route falls back to the default route rather than
// failing the node.
type Router struct {
	chat model.ChatModel
}

// NewRouter creates the router node handler backed by the given chat model.
func NewRouter(chat model.ChatModel) *Router {
	return &Router{chat: chat}
}

// CanHandle implements flow.Handler.
func (r *Router) CanHandle(t flow.NodeType) bool {
	return t == flow.NodeRouter
}

// Execute implements flow.Handler.
func (r *Router) Execute(ctx context.Context, req flow.Request) (flow.Result, error) {
	input, _ := req.Config["input"].(string)
	if input == "" {
		return flow.Result{}, fmt.Errorf("router node %s: config has no input", req.NodeID)
	}

	routes, err := routerRoutes(req.Config)
	if err != nil {
		return flow.Result{}, fmt.Errorf("router node %s: %w", req.NodeID, err)
	}

	names := make([]string, len(routes))
	for i, rt := range routes {
		names[i] = rt.name
	}
	defaultRoute, _ := req.Config["defaultRoute"].(string)
	if defaultRoute == "" {
		defaultRoute = names[0]
	}

	out, err := r.chat.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: "You are a routing classifier. Respond with ONLY a JSON object, no additional text."},
		{Role: model.RoleUser, Content: buildRouterPrompt(input, routes)},
	})
	if err != nil {
		return flow.Result{}, fmt.Errorf("router node %s: %w", req.NodeID, err)
	}

	decision := parseDecision(out.Text)
	decision = flow.ResolveRouterDecision(decision, names, defaultRoute)

	return flow.Result{
		Output: map[string]any{
			"route":      decision.SelectedRoute,
			"confidence": decision.Confidence,
			"reasoning":  decision.Reasoning,
		},
		Signals: flow.Signals{SelectedRoute: decision.SelectedRoute},
		Metrics: flow.Metrics{TokensUsed: out.TokensUsed},
	}, nil
}

type routerRoute struct {
	name        string
	description string
}

func routerRoutes(config map[string]any) ([]routerRoute, error) {
	raw, ok := config["routes"]
	if !ok {
		return nil, fmt.Errorf("config has no routes")
	}
	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("routes must be a non-empty array")
	}

	routes := make([]routerRoute, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("route %d must be an object, got %T", i, entry)
		}
		name, _ := obj["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("route %d has no name", i)
		}
		desc, _ := obj["description"].(string)
		routes = append(routes, routerRoute{name: name, description: desc})
	}
	return routes, nil
}

func buildRouterPrompt(input string, routes []routerRoute) string {
	var sb strings.Builder
	sb.WriteString("Classify the following input into exactly one of these routes:\n\n")
	for _, rt := range routes {
		sb.WriteString("- ")
		sb.WriteString(rt.name)
		if rt.description != "" {
			sb.WriteString(": ")
			sb.WriteString(rt.description)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\nInput:\n")
	sb.WriteString(input)
	sb.WriteString("\n\nRespond with a JSON object of the form ")
	sb.WriteString(`{"route":"<route name>","confidence":0.0,"reasoning":"<one sentence>"}`)
	return sb.String()
}

// parseDecision extracts a RouteDecision from model output, tolerating
// markdown code fences and surrounding prose. An unparseable response yields
// a zero decision, which resolves to the default route.
func parseDecision(text string) flow.RouteDecision {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var decision flow.RouteDecision
	if err := json.Unmarshal([]byte(text), &decision); err == nil {
		return decision
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return flow.RouteDecision{}
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &decision); err != nil {
		return flow.RouteDecision{}
	}
	return decision
}
