package flow

// Status is the lifecycle state of a node within one execution.
//
// Transitions are monotonic:
//
//	pending  -> ready | skipped
//	ready    -> executing
//	executing -> completed | failed
//
// skipped, completed and failed are terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether a status can no longer change.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// Activation is the resolution state of an edge within one execution.
type Activation string

const (
	ActivationUnresolved Activation = "unresolved"
	ActivationActive     Activation = "active"
	ActivationPruned     Activation = "pruned"
)

// QueueState tracks per-node status and per-edge activation for one
// execution, and decides which nodes may run next.
//
// QueueState is a value type: every transition (MarkExecuting, MarkCompleted,
// MarkFailed) returns a new QueueState and leaves the receiver untouched.
// Transitions never perform I/O and never block, so applying concurrently
// completed results is just a serialized fold over queue values.
type QueueState struct {
	statuses    map[string]Status
	activations map[string]Activation
	failures    map[string]string
}

// InitializeQueue creates the starting queue state for a graph: nodes with
// no dependencies are ready, all others pending, all edges unresolved.
func InitializeQueue(g *Graph) QueueState {
	q := QueueState{
		statuses:    make(map[string]Status, len(g.nodeOrder)),
		activations: make(map[string]Activation, len(g.edgeOrder)),
		failures:    map[string]string{},
	}
	for _, id := range g.nodeOrder {
		if len(g.Incoming(id)) == 0 {
			q.statuses[id] = StatusReady
		} else {
			q.statuses[id] = StatusPending
		}
	}
	for _, id := range g.edgeOrder {
		q.activations[id] = ActivationUnresolved
	}
	return q
}

func (q QueueState) clone() QueueState {
	next := QueueState{
		statuses:    make(map[string]Status, len(q.statuses)),
		activations: make(map[string]Activation, len(q.activations)),
		failures:    make(map[string]string, len(q.failures)),
	}
	for k, v := range q.statuses {
		next.statuses[k] = v
	}
	for k, v := range q.activations {
		next.activations[k] = v
	}
	for k, v := range q.failures {
		next.failures[k] = v
	}
	return next
}

// ReadyNodes returns up to maxConcurrent node IDs currently ready, in graph
// insertion order so scheduling is reproducible. A non-positive bound means
// unbounded.
func (q QueueState) ReadyNodes(g *Graph, maxConcurrent int) []string {
	var ready []string
	for _, id := range g.nodeOrder {
		if q.statuses[id] != StatusReady {
			continue
		}
		ready = append(ready, id)
		if maxConcurrent > 0 && len(ready) >= maxConcurrent {
			break
		}
	}
	return ready
}

// MarkExecuting flips the listed ready nodes to executing. Nodes not in the
// ready status are left unchanged, preserving monotonicity.
func (q QueueState) MarkExecuting(nodeIDs ...string) QueueState {
	next := q.clone()
	for _, id := range nodeIDs {
		if next.statuses[id] == StatusReady {
			next.statuses[id] = StatusExecuting
		}
	}
	return next
}

// MarkCompleted records a successful node execution and resolves its
// outgoing edges by node semantics:
//
//   - Branch-selecting nodes (conditional, switch, router) activate exactly
//     the edge group matching the SelectedRoute signal (or the node's
//     configured defaultRoute when the signal is absent or unmatched) and
//     prune every other outgoing edge.
//   - A node signaling ActivateErrorPort activates the edges whose handle
//     equals the signal and prunes the rest (including default).
//   - All other nodes activate every outgoing edge.
//
// Readiness of direct dependents is then recomputed, recursing through the
// skip-propagation chain.
func (q QueueState) MarkCompleted(g *Graph, nodeID string, sig Signals) QueueState {
	next := q.clone()
	next.statuses[nodeID] = StatusCompleted

	node := g.Node(nodeID)
	outgoing := g.Outgoing(nodeID)

	switch {
	case node != nil && node.Type.branchSelecting():
		winner := sig.SelectedRoute
		if winner == "" || !hasHandle(outgoing, winner) {
			winner = configuredDefaultRoute(node)
		}
		for _, e := range outgoing {
			if string(e.Handle) == winner {
				next.activations[e.ID] = ActivationActive
			} else {
				next.activations[e.ID] = ActivationPruned
			}
		}

	case sig.ActivateErrorPort != "":
		for _, e := range outgoing {
			if string(e.Handle) == sig.ActivateErrorPort {
				next.activations[e.ID] = ActivationActive
			} else {
				next.activations[e.ID] = ActivationPruned
			}
		}

	default:
		for _, e := range outgoing {
			next.activations[e.ID] = ActivationActive
		}
	}

	if node != nil {
		next.resolveDependents(g, node.Dependents)
	}
	return next
}

// MarkFailed records a failed node execution. Error-handled outgoing edges
// become active and all other outgoing edges are pruned, so failure stays
// local: only dependents reachable exclusively through the pruned paths end
// up skipped. Fan-in siblings with another active inbound edge remain
// eligible once all their dependencies are terminal; fan-in requires every
// dependency to be terminal, not to have succeeded.
func (q QueueState) MarkFailed(g *Graph, nodeID, errorMessage string) QueueState {
	next := q.clone()
	next.statuses[nodeID] = StatusFailed
	next.failures[nodeID] = errorMessage

	for _, e := range g.Outgoing(nodeID) {
		if e.Handle == HandleError {
			next.activations[e.ID] = ActivationActive
		} else {
			next.activations[e.ID] = ActivationPruned
		}
	}

	if node := g.Node(nodeID); node != nil {
		next.resolveDependents(g, node.Dependents)
	}
	return next
}

// resolveDependents recomputes readiness for the given pending nodes and
// recurses when a node resolves to skipped. Operates on an already-cloned
// state, so in-place mutation here is safe.
func (q *QueueState) resolveDependents(g *Graph, nodeIDs []string) {
	for _, id := range nodeIDs {
		if q.statuses[id] != StatusPending {
			continue
		}
		node := g.Node(id)

		allTerminal := true
		for _, dep := range node.Dependencies {
			if !q.statuses[dep].Terminal() {
				allTerminal = false
				break
			}
		}
		if !allTerminal {
			continue
		}

		incoming := g.Incoming(id)
		anyActive := false
		allPruned := len(incoming) > 0
		for _, e := range incoming {
			switch q.activations[e.ID] {
			case ActivationActive:
				anyActive = true
				allPruned = false
			case ActivationUnresolved:
				allPruned = false
			}
		}

		switch {
		case anyActive:
			q.statuses[id] = StatusReady
		case allPruned:
			// Unreachable: every inbound edge pruned. Not an error; prune
			// this node's own subtree transitively.
			q.statuses[id] = StatusSkipped
			for _, e := range g.Outgoing(id) {
				q.activations[e.ID] = ActivationPruned
			}
			q.resolveDependents(g, node.Dependents)
		}
	}
}

// Complete reports whether execution has finished: no node remains pending,
// ready or executing.
func (q QueueState) Complete() bool {
	for _, s := range q.statuses {
		if !s.Terminal() {
			return false
		}
	}
	return true
}

// Status returns the status of a node.
func (q QueueState) Status(nodeID string) Status { return q.statuses[nodeID] }

// EdgeActivation returns the activation of an edge.
func (q QueueState) EdgeActivation(edgeID string) Activation { return q.activations[edgeID] }

// FailureMessage returns the recorded error message for a failed node.
func (q QueueState) FailureMessage(nodeID string) (string, bool) {
	msg, ok := q.failures[nodeID]
	return msg, ok
}

// Statuses returns a copy of the node status map, keyed by node ID.
func (q QueueState) Statuses() map[string]string {
	out := make(map[string]string, len(q.statuses))
	for k, v := range q.statuses {
		out[k] = string(v)
	}
	return out
}

// EdgeActivations returns a copy of the edge activation map, keyed by edge ID.
func (q QueueState) EdgeActivations() map[string]string {
	out := make(map[string]string, len(q.activations))
	for k, v := range q.activations {
		out[k] = string(v)
	}
	return out
}

func hasHandle(edges []*Edge, handle string) bool {
	for _, e := range edges {
		if string(e.Handle) == handle {
			return true
		}
	}
	return false
}

// configuredDefaultRoute reads the node's fallback route from its
// configuration. Falls back to the default handle when unset.
func configuredDefaultRoute(node *Node) string {
	if node.Config != nil {
		if r, ok := node.Config["defaultRoute"].(string); ok && r != "" {
			return r
		}
	}
	return string(HandleDefault)
}
