package flow

import (
	"regexp"
	"strings"
)

// Branch resolution helpers shared by the switch and router node handlers
// and by tests. Edge activation itself happens in QueueState.MarkCompleted;
// these helpers only decide which route a branch-selecting node emits.

// SwitchCase is one entry in a switch node's ordered case list. Value is the
// match pattern (wildcards allowed), Route the handle type activated when it
// wins.
type SwitchCase struct {
	Value string
	Route string
}

// SwitchResult is the outcome of evaluating a switch node.
type SwitchResult struct {
	// Route is the winning handle type, or "default" when no case matched
	// and no default case is configured.
	Route string

	// Matched is the case value that won, or nil for the default sentinel.
	Matched any
}

// EvaluateSwitch tests input against cases in declaration order and returns
// the first match, even if a later case would match more specifically.
//
// Comparison is case-insensitive string equality. Case values may contain
// wildcards: `*` matches zero or more characters and `?` matches exactly one;
// all other characters match literally. No match falls back to defaultRoute;
// with no default configured the result is the "default" sentinel route with
// a nil matched value.
func EvaluateSwitch(input string, cases []SwitchCase, defaultRoute string) SwitchResult {
	for _, c := range cases {
		if matchPattern(c.Value, input) {
			return SwitchResult{Route: c.Route, Matched: c.Value}
		}
	}
	if defaultRoute != "" {
		return SwitchResult{Route: defaultRoute}
	}
	return SwitchResult{Route: string(HandleDefault)}
}

// matchPattern reports whether input matches the wildcard pattern. The
// pattern is compiled to an anchored case-insensitive regular expression
// with every non-wildcard character quoted.
func matchPattern(pattern, input string) bool {
	var sb strings.Builder
	sb.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '*':
			sb.WriteString(".*")
		case '?':
			sb.WriteString(".")
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		// QuoteMeta makes this unreachable for any input; fall back to a
		// literal comparison rather than panicking.
		return strings.EqualFold(pattern, input)
	}
	return re.MatchString(input)
}

// ConditionalRoute maps a boolean condition result to its handle type.
func ConditionalRoute(result bool) string {
	if result {
		return string(HandleTrue)
	}
	return string(HandleFalse)
}

// RouteDecision is what an external classifier returns for a router node.
// Confidence is informational only; it never blocks activation.
type RouteDecision struct {
	SelectedRoute string  `json:"route"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
}

// ResolveRouterDecision validates a classifier decision against the
// configured route names. An unknown or empty route is replaced with the
// configured default route.
func ResolveRouterDecision(decision RouteDecision, configured []string, defaultRoute string) RouteDecision {
	for _, r := range configured {
		if strings.EqualFold(decision.SelectedRoute, r) {
			decision.SelectedRoute = r
			return decision
		}
	}
	decision.SelectedRoute = defaultRoute
	return decision
}
