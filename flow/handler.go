package flow

import (
	"context"
	"sync"
	"time"
)

// Request is the input to a node handler invocation.
//
// Config has already been template-resolved against the execution context;
// handlers never see raw {{Path.To.Value}} placeholders.
type Request struct {
	// ExecutionID identifies the workflow execution.
	ExecutionID string

	// NodeID and NodeName identify the node being executed.
	NodeID   string
	NodeName string

	// NodeType is the node's type tag.
	NodeType NodeType

	// Config is the resolved node configuration.
	Config map[string]any

	// Snapshot is the context snapshot current at dispatch time.
	Snapshot Snapshot
}

// Signals are optional routing hints a handler attaches to its result. The
// scheduler folds them into edge activation; handlers never touch the queue
// state directly.
type Signals struct {
	// SelectedRoute names the winning handle group for branch-selecting
	// nodes (conditional, switch, router).
	SelectedRoute string `json:"selectedRoute,omitempty"`

	// ActivateErrorPort, when set, names the handle type to activate instead
	// of the default edges. Action-like nodes use this to signal a handled
	// error without failing the node.
	ActivateErrorPort string `json:"activateErrorPort,omitempty"`
}

// Metrics carry optional measurements a handler reports about an invocation.
type Metrics struct {
	Duration   time.Duration `json:"duration,omitempty"`
	TokensUsed int           `json:"tokensUsed,omitempty"`
}

// Result is the output of a node handler invocation. Output is stored
// verbatim as the node's output in the context snapshot.
//
// A handler that returns a non-nil error fails the node (MarkFailed). A
// handler that returns normally with a result whose contents encode a
// business-level failure (e.g. {"success": false}) is invisible to the
// scheduler; such failures must be wired to explicit error edges or
// downstream conditionals by the workflow author.
type Result struct {
	Output  any
	Signals Signals
	Metrics Metrics
}

// Handler executes node logic for one or more node types. This contract is
// the entire external boundary for node logic: the scheduler never inspects
// concrete providers.
type Handler interface {
	// CanHandle reports whether this handler executes the given node type.
	CanHandle(t NodeType) bool

	// Execute runs the node. Blocking work (network I/O, long-running
	// generation jobs) happens only here and must respect ctx cancellation.
	Execute(ctx context.Context, req Request) (Result, error)
}

// HandlerFunc adapts a plain function to the Handler interface. It accepts
// every node type; pair it with Registry.Register to bind it to one.
type HandlerFunc func(ctx context.Context, req Request) (Result, error)

// CanHandle implements Handler. A HandlerFunc accepts any node type.
func (f HandlerFunc) CanHandle(NodeType) bool { return true }

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// Registry maps each node type to exactly one handler. Resolution is a
// static table lookup; no reflection is involved.
type Registry struct {
	mu       sync.RWMutex
	handlers map[NodeType]Handler
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[NodeType]Handler)}
}

// Register binds a node type to a handler.
//
// Returns an error if the handler is nil, rejects the type, or the type is
// already bound.
func (r *Registry) Register(t NodeType, h Handler) error {
	if h == nil {
		return &EngineError{Message: "handler cannot be nil", Code: "NIL_HANDLER"}
	}
	if !h.CanHandle(t) {
		return &EngineError{Message: "handler does not accept node type: " + string(t), Code: "TYPE_MISMATCH"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[t]; exists {
		return &EngineError{Message: "duplicate handler for node type: " + string(t), Code: "DUPLICATE_HANDLER"}
	}
	r.handlers[t] = h
	return nil
}

// Resolve returns the handler bound to a node type, or ErrNoHandler.
func (r *Registry) Resolve(t NodeType) (Handler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[t]
	if !ok {
		return nil, ErrNoHandler
	}
	return h, nil
}
