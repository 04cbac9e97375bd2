package flow

// Snapshot is an immutable view of everything a point in execution can see:
// the original workflow inputs, every stored node output, and the named
// variables (including the ephemeral "loop" variable during iteration).
//
// Every mutation (StoreNodeOutput, SetVariable) returns a new Snapshot; the
// receiver is never modified and prior snapshots remain valid. This value
// semantics is what allows concurrent node completions to be integrated
// safely and lets a durable-execution substrate replay from any persisted
// snapshot without re-deriving intermediate states.
//
// Once written, a node output is never overwritten: re-executed logical nodes
// (loop body iterations) store under synthesized per-iteration IDs, so
// history is preserved.
type Snapshot struct {
	inputs    map[string]any
	outputs   map[string]any
	variables map[string]any
}

// CreateContext creates the initial snapshot for an execution, holding the
// workflow inputs and no outputs or variables. Inputs are deep-copied, so
// later mutation of the caller's map or its nested values never reaches the
// snapshot.
func CreateContext(inputs map[string]any) Snapshot {
	copied := make(map[string]any, len(inputs))
	for k, v := range inputs {
		copied[k] = storedCopy(v)
	}
	return Snapshot{
		inputs:    copied,
		outputs:   map[string]any{},
		variables: map[string]any{},
	}
}

// StoreNodeOutput returns a new snapshot with the node's output recorded.
// The output is deep-copied on store.
//
// If an output already exists for the node ID the write is ignored and the
// receiver is returned unchanged; stored outputs are append-only.
func (s Snapshot) StoreNodeOutput(nodeID string, output any) Snapshot {
	if _, exists := s.outputs[nodeID]; exists {
		return s
	}
	next := s
	next.outputs = copyObject(s.outputs)
	next.outputs[nodeID] = storedCopy(output)
	return next
}

// NodeOutput returns the stored output for a node, if any.
func (s Snapshot) NodeOutput(nodeID string) (any, bool) {
	v, ok := s.outputs[nodeID]
	return v, ok
}

// SetVariable returns a new snapshot with the named variable set. Unlike
// node outputs, variables may be overwritten (the loop variable is rebound
// every iteration).
func (s Snapshot) SetVariable(name string, value any) Snapshot {
	next := s
	next.variables = copyObject(s.variables)
	next.variables[name] = storedCopy(value)
	return next
}

// Variable returns the named variable, if set.
func (s Snapshot) Variable(name string) (any, bool) {
	v, ok := s.variables[name]
	return v, ok
}

// Inputs returns a copy of the workflow inputs.
func (s Snapshot) Inputs() map[string]any { return copyObject(s.inputs) }

// Outputs returns a copy of the node output map.
func (s Snapshot) Outputs() map[string]any { return copyObject(s.outputs) }

// Variables returns a copy of the variable map.
func (s Snapshot) Variables() map[string]any { return copyObject(s.variables) }

// ExecutionContext returns the flattened structured value that template
// interpolation resolves against: workflow inputs at the root, node outputs
// nested under their node IDs, and variables at the root.
//
// Root-level input placement and per-node nesting are both supported at the
// same time; on a key collision node outputs shadow inputs, and variables
// shadow both.
func (s Snapshot) ExecutionContext() map[string]any {
	merged := make(map[string]any, len(s.inputs)+len(s.outputs)+len(s.variables))
	for k, v := range s.inputs {
		merged[k] = v
	}
	for nodeID, out := range s.outputs {
		merged[nodeID] = out
	}
	for name, v := range s.variables {
		merged[name] = v
	}
	return merged
}

// FinalOutputs returns the workflow's external result: the stored outputs of
// the declared output nodes, keyed by node ID.
//
// FinalOutputs never fails. Outputs that were never computed (the node
// failed or was skipped) are simply absent, letting callers inspect partial
// success directly.
func (s Snapshot) FinalOutputs(outputNodeIDs []string) map[string]any {
	result := make(map[string]any, len(outputNodeIDs))
	for _, id := range outputNodeIDs {
		if out, ok := s.outputs[id]; ok {
			result[id] = out
		}
	}
	return result
}
