// Package flow provides the core workflow graph execution scheduler.
package flow

// NodeType identifies the kind of logic a node performs.
//
// The set of node types is closed: every type maps to exactly one registered
// Handler at dispatch time. Adding a new node type means adding a constant
// here and registering a handler for it.
type NodeType string

// Node type constants. These mirror the node kinds a workflow definition can
// declare.
const (
	NodeInput          NodeType = "input"
	NodeOutput         NodeType = "output"
	NodeTransform      NodeType = "transform"
	NodeConditional    NodeType = "conditional"
	NodeSwitch         NodeType = "switch"
	NodeRouter         NodeType = "router"
	NodeLoop           NodeType = "loop"
	NodeAction         NodeType = "action"
	NodeHTTP           NodeType = "http"
	NodeLLM            NodeType = "llm"
	NodeAudio          NodeType = "audio"
	NodeVision         NodeType = "vision"
	NodeVideoGen       NodeType = "video-generation"
	NodeFileOperations NodeType = "file-operations"
)

// branchSelecting reports whether this node type activates exactly one
// outgoing edge group on completion (driven by the SelectedRoute signal).
func (t NodeType) branchSelecting() bool {
	switch t {
	case NodeConditional, NodeSwitch, NodeRouter:
		return true
	}
	return false
}

// Node is a unit of workflow logic.
//
// Nodes are immutable once the Graph containing them is built. Dependencies
// and Dependents are derived from the edge set by the Builder; callers only
// declare edges.
type Node struct {
	// ID uniquely identifies the node within its graph.
	ID string

	// Type selects which Handler executes this node.
	Type NodeType

	// Name is the display name shown in logs and events.
	Name string

	// Config is the node's configuration. String values may contain
	// {{Path.To.Value}} placeholders resolved against the execution context
	// immediately before dispatch.
	Config map[string]any

	// Dependencies are the IDs of nodes this node waits on.
	Dependencies []string

	// Dependents are the IDs of nodes waiting on this node.
	Dependents []string
}

// HandleType tags an edge with the outcome under which it is traversed.
//
// The well-known handles are default, true, false and error. Any other
// string is a named route, matched against the SelectedRoute signal of a
// branch-selecting node (switch cases, router routes).
type HandleType string

const (
	HandleDefault HandleType = "default"
	HandleTrue    HandleType = "true"
	HandleFalse   HandleType = "false"
	HandleError   HandleType = "error"
)

// Edge is a directed connection between two nodes.
//
// For every dependency relation the graph holds at least one edge from the
// dependency to the dependent; the Builder enforces this by deriving
// dependencies from edges.
type Edge struct {
	// ID uniquely identifies the edge within its graph.
	ID string

	// Source is the node the edge leaves.
	Source string

	// Target is the node the edge enters.
	Target string

	// Handle is the outcome under which this edge is traversed.
	Handle HandleType
}
