package flow

import "fmt"

// Graph is an immutable, validated description of a workflow: nodes, edges,
// precomputed topology and the designated entry and output nodes.
//
// A Graph is constructed once through a Builder and never mutated afterwards.
// All runtime state (node statuses, edge activations, stored outputs) lives
// in QueueState and Snapshot values, never in the Graph.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string

	// incoming / outgoing index edges by node for readiness resolution.
	incoming map[string][]*Edge
	outgoing map[string][]*Edge

	// levels are the topological levels of the graph. They are informational
	// only: readiness is computed dynamically, not by level.
	levels [][]string

	triggers []string
	outputs  []string

	loopBodies map[string]*Graph

	maxConcurrent int
}

// Builder assembles a Graph. Validation happens in Build; the Add methods
// never fail, which keeps construction order flexible.
type Builder struct {
	nodes      []*Node
	edges      []*Edge
	outputs    []string
	loopBodies map[string]*Graph
	maxConc    int
}

// NewBuilder creates an empty graph builder.
func NewBuilder() *Builder {
	return &Builder{loopBodies: make(map[string]*Graph)}
}

// AddNode registers a node. Dependencies and Dependents on the passed node
// are ignored; Build derives them from the edge set.
func (b *Builder) AddNode(id string, typ NodeType, name string, config map[string]any) *Builder {
	b.nodes = append(b.nodes, &Node{ID: id, Type: typ, Name: name, Config: config})
	return b
}

// AddEdge registers a directed edge with the given handle type.
func (b *Builder) AddEdge(id, source, target string, handle HandleType) *Builder {
	b.edges = append(b.edges, &Edge{ID: id, Source: source, Target: target, Handle: handle})
	return b
}

// Outputs declares which node IDs form the workflow's external result.
func (b *Builder) Outputs(nodeIDs ...string) *Builder {
	b.outputs = append(b.outputs, nodeIDs...)
	return b
}

// LoopBody attaches a body subgraph to a loop node. The body runs once per
// iteration; its declared output nodes provide the iteration result.
func (b *Builder) LoopBody(loopNodeID string, body *Graph) *Builder {
	b.loopBodies[loopNodeID] = body
	return b
}

// MaxConcurrent bounds how many nodes may execute at once. Zero or negative
// means no graph-level bound; the engine's own limit applies.
func (b *Builder) MaxConcurrent(n int) *Builder {
	b.maxConc = n
	return b
}

// Build validates the assembled definition and returns an immutable Graph.
//
// Validation failures are fatal at build time so the runtime scheduler can
// assume a well-formed graph:
//   - duplicate node or edge IDs
//   - edges referencing unknown nodes
//   - no trigger (every node has a dependency)
//   - dependency cycles
//   - loop bodies attached to non-loop nodes or reusing parent node IDs
func (b *Builder) Build() (*Graph, error) {
	g := &Graph{
		nodes:         make(map[string]*Node, len(b.nodes)),
		edges:         make(map[string]*Edge, len(b.edges)),
		incoming:      make(map[string][]*Edge),
		outgoing:      make(map[string][]*Edge),
		loopBodies:    b.loopBodies,
		maxConcurrent: b.maxConc,
	}

	for _, n := range b.nodes {
		if n.ID == "" {
			return nil, &EngineError{Message: "node ID cannot be empty", Code: "INVALID_NODE"}
		}
		if _, exists := g.nodes[n.ID]; exists {
			return nil, &EngineError{Message: "duplicate node ID: " + n.ID, Code: "DUPLICATE_NODE"}
		}
		node := &Node{ID: n.ID, Type: n.Type, Name: n.Name, Config: n.Config}
		g.nodes[n.ID] = node
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}

	for _, e := range b.edges {
		if _, exists := g.edges[e.ID]; exists {
			return nil, &EngineError{Message: "duplicate edge ID: " + e.ID, Code: "DUPLICATE_EDGE"}
		}
		if _, ok := g.nodes[e.Source]; !ok {
			return nil, &EngineError{Message: fmt.Sprintf("edge %s references unknown source node %s", e.ID, e.Source), Code: "DANGLING_EDGE"}
		}
		if _, ok := g.nodes[e.Target]; !ok {
			return nil, &EngineError{Message: fmt.Sprintf("edge %s references unknown target node %s", e.ID, e.Target), Code: "DANGLING_EDGE"}
		}
		edge := &Edge{ID: e.ID, Source: e.Source, Target: e.Target, Handle: e.Handle}
		g.edges[edge.ID] = edge
		g.edgeOrder = append(g.edgeOrder, edge.ID)
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], edge)
	}

	// Derive dependency relations from edges, deduplicated, in edge order.
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		seen := make(map[string]bool)
		for _, e := range g.incoming[id] {
			if !seen[e.Source] {
				seen[e.Source] = true
				node.Dependencies = append(node.Dependencies, e.Source)
			}
		}
		seen = make(map[string]bool)
		for _, e := range g.outgoing[id] {
			if !seen[e.Target] {
				seen[e.Target] = true
				node.Dependents = append(node.Dependents, e.Target)
			}
		}
	}

	for _, id := range g.nodeOrder {
		if len(g.incoming[id]) == 0 {
			g.triggers = append(g.triggers, id)
		}
	}
	if len(g.nodeOrder) > 0 && len(g.triggers) == 0 {
		return nil, &EngineError{Message: "graph has no trigger node (every node has a dependency)", Code: "NO_TRIGGER"}
	}

	levels, err := computeLevels(g)
	if err != nil {
		return nil, err
	}
	g.levels = levels

	for _, out := range b.outputs {
		if _, ok := g.nodes[out]; !ok {
			return nil, &EngineError{Message: "output node does not exist: " + out, Code: "NODE_NOT_FOUND"}
		}
		g.outputs = append(g.outputs, out)
	}

	for loopID, body := range b.loopBodies {
		node, ok := g.nodes[loopID]
		if !ok {
			return nil, &EngineError{Message: "loop body attached to unknown node: " + loopID, Code: "NODE_NOT_FOUND"}
		}
		if node.Type != NodeLoop {
			return nil, &EngineError{Message: "loop body attached to non-loop node: " + loopID, Code: "INVALID_LOOP_BODY"}
		}
		for _, bodyNodeID := range body.nodeOrder {
			if _, clash := g.nodes[bodyNodeID]; clash {
				return nil, &EngineError{Message: "loop body node ID collides with parent graph: " + bodyNodeID, Code: "INVALID_LOOP_BODY"}
			}
		}
	}

	return g, nil
}

// computeLevels performs a Kahn-style layering of the graph. A remainder
// after the sweep means a dependency cycle.
func computeLevels(g *Graph) ([][]string, error) {
	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.nodeOrder {
		indegree[id] = len(g.nodes[id].Dependencies)
	}

	var levels [][]string
	placed := 0
	frontier := make([]string, 0)
	for _, id := range g.nodeOrder {
		if indegree[id] == 0 {
			frontier = append(frontier, id)
		}
	}

	for len(frontier) > 0 {
		levels = append(levels, frontier)
		placed += len(frontier)

		next := make([]string, 0)
		ready := make(map[string]bool)
		for _, id := range frontier {
			for _, dep := range g.nodes[id].Dependents {
				indegree[dep]--
				if indegree[dep] == 0 {
					ready[dep] = true
				}
			}
		}
		// Preserve insertion order within each level.
		for _, id := range g.nodeOrder {
			if ready[id] {
				next = append(next, id)
			}
		}
		frontier = next
	}

	if placed != len(g.nodeOrder) {
		return nil, &EngineError{Message: "graph contains a dependency cycle", Code: "CYCLIC_GRAPH"}
	}
	return levels, nil
}

// Node returns the node with the given ID, or nil if it does not exist.
func (g *Graph) Node(id string) *Node { return g.nodes[id] }

// NodeIDs returns all node IDs in insertion order.
func (g *Graph) NodeIDs() []string {
	out := make([]string, len(g.nodeOrder))
	copy(out, g.nodeOrder)
	return out
}

// Edge returns the edge with the given ID, or nil if it does not exist.
func (g *Graph) Edge(id string) *Edge { return g.edges[id] }

// EdgeIDs returns all edge IDs in insertion order.
func (g *Graph) EdgeIDs() []string {
	out := make([]string, len(g.edgeOrder))
	copy(out, g.edgeOrder)
	return out
}

// Incoming returns the edges entering the given node.
func (g *Graph) Incoming(nodeID string) []*Edge { return g.incoming[nodeID] }

// Outgoing returns the edges leaving the given node.
func (g *Graph) Outgoing(nodeID string) []*Edge { return g.outgoing[nodeID] }

// Triggers returns the zero-dependency entry node IDs.
func (g *Graph) Triggers() []string {
	out := make([]string, len(g.triggers))
	copy(out, g.triggers)
	return out
}

// OutputNodeIDs returns the declared output node IDs.
func (g *Graph) OutputNodeIDs() []string {
	out := make([]string, len(g.outputs))
	copy(out, g.outputs)
	return out
}

// Levels returns the precomputed topological levels. Informational only.
func (g *Graph) Levels() [][]string { return g.levels }

// LoopBody returns the body subgraph of a loop node, or nil.
func (g *Graph) LoopBody(loopNodeID string) *Graph { return g.loopBodies[loopNodeID] }

// MaxConcurrentNodes returns the concurrency bound; zero means unbounded.
func (g *Graph) MaxConcurrentNodes() int { return g.maxConcurrent }
