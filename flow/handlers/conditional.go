package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/flowmaestro/flowmaestro-go/flow"
)

// Conditional executes conditional nodes: it evaluates a boolean test and
// selects the "true" or "false" route.
//
// Configuration, either form:
//   - condition: a value already resolved to a boolean (or the strings
//     "true"/"false")
//   - left, operator, right: a comparison, with operator one of
//     eq, neq, gt, gte, lt, lte, contains
//
// Numeric comparisons apply when both operands are numbers; otherwise
// operands are compared as strings. The selected route is emitted as the
// SelectedRoute signal so the scheduler prunes the losing branch.
type Conditional struct{}

// NewConditional creates the conditional node handler.
func NewConditional() *Conditional {
	return &Conditional{}
}

// CanHandle implements flow.Handler.
func (c *Conditional) CanHandle(t flow.NodeType) bool {
	return t == flow.NodeConditional
}

// Execute implements flow.Handler.
func (c *Conditional) Execute(_ context.Context, req flow.Request) (flow.Result, error) {
	result, err := evaluateCondition(req.Config)
	if err != nil {
		return flow.Result{}, fmt.Errorf("conditional node %s: %w", req.NodeID, err)
	}

	return flow.Result{
		Output:  map[string]any{"result": result},
		Signals: flow.Signals{SelectedRoute: flow.ConditionalRoute(result)},
	}, nil
}

func evaluateCondition(config map[string]any) (bool, error) {
	if raw, ok := config["condition"]; ok {
		switch v := raw.(type) {
		case bool:
			return v, nil
		case string:
			return strings.EqualFold(strings.TrimSpace(v), "true"), nil
		case nil:
			return false, nil
		default:
			return false, fmt.Errorf("condition must be a boolean or string, got %T", raw)
		}
	}

	op, _ := config["operator"].(string)
	if op == "" {
		return false, fmt.Errorf("config needs a condition or a left/operator/right comparison")
	}
	return compare(config["left"], op, config["right"])
}

func compare(left any, op string, right any) (bool, error) {
	ln, lok := asNumber(left)
	rn, rok := asNumber(right)

	switch strings.ToLower(op) {
	case "eq", "==":
		if lok && rok {
			return ln == rn, nil
		}
		return asString(left) == asString(right), nil
	case "neq", "!=":
		if lok && rok {
			return ln != rn, nil
		}
		return asString(left) != asString(right), nil
	case "gt", ">":
		if lok && rok {
			return ln > rn, nil
		}
		return asString(left) > asString(right), nil
	case "gte", ">=":
		if lok && rok {
			return ln >= rn, nil
		}
		return asString(left) >= asString(right), nil
	case "lt", "<":
		if lok && rok {
			return ln < rn, nil
		}
		return asString(left) < asString(right), nil
	case "lte", "<=":
		if lok && rok {
			return ln <= rn, nil
		}
		return asString(left) <= asString(right), nil
	case "contains":
		return strings.Contains(asString(left), asString(right)), nil
	default:
		return false, fmt.Errorf("unsupported operator: %s", op)
	}
}

func asNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
