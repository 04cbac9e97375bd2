package flow

import (
	"encoding/json"
	"fmt"
)

// Definition is the JSON document form of a workflow, as stored and
// exchanged by the platform. ParseDefinition + BuildGraph turn one into an
// executable Graph.
type Definition struct {
	Name               string                 `json:"name"`
	Description        string                 `json:"description,omitempty"`
	Nodes              []NodeDefinition       `json:"nodes"`
	Edges              []EdgeDefinition       `json:"edges"`
	Outputs            []string               `json:"outputs"`
	MaxConcurrentNodes int                    `json:"maxConcurrentNodes,omitempty"`
	LoopBodies         map[string]*Definition `json:"loopBodies,omitempty"`
}

// NodeDefinition is one node entry in a workflow document.
type NodeDefinition struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Name   string         `json:"name,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// EdgeDefinition is one edge entry in a workflow document. An empty handle
// means default.
type EdgeDefinition struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Handle string `json:"handle,omitempty"`
}

// ParseDefinition decodes a workflow document.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse workflow definition: %w", err)
	}
	return &def, nil
}

// BuildGraph validates the definition and constructs the executable Graph,
// recursing into loop bodies.
func (d *Definition) BuildGraph() (*Graph, error) {
	b := NewBuilder()
	for _, n := range d.Nodes {
		b.AddNode(n.ID, NodeType(n.Type), n.Name, n.Config)
	}
	for i, e := range d.Edges {
		id := e.ID
		if id == "" {
			id = fmt.Sprintf("edge-%d", i)
		}
		handle := HandleType(e.Handle)
		if handle == "" {
			handle = HandleDefault
		}
		b.AddEdge(id, e.Source, e.Target, handle)
	}
	b.Outputs(d.Outputs...)
	b.MaxConcurrent(d.MaxConcurrentNodes)

	for loopID, bodyDef := range d.LoopBodies {
		body, err := bodyDef.BuildGraph()
		if err != nil {
			return nil, fmt.Errorf("loop body %s: %w", loopID, err)
		}
		b.LoopBody(loopID, body)
	}

	return b.Build()
}
