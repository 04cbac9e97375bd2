package flow

import (
	"encoding/json"
	"fmt"
)

// Structured values flowing through a workflow (node configuration, node
// outputs, variables) use the JSON object model: map[string]any for objects,
// []any for arrays, string/float64/bool for scalars, and nil for null.
// Every value stored in a Snapshot must round-trip through encoding/json.

// deepCopyValue creates an independent copy of a structured value using a
// JSON round-trip.
//
// This works for any value following the JSON object model, including nested
// maps and slices. It is how snapshots guarantee that handing a value to one
// consumer can never mutate what another consumer observes.
//
// Limitations:
//   - Unexported struct fields are not copied
//   - Channels, functions, and cyclic values will fail
func deepCopyValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal value: %w", err)
	}

	var copied any
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("failed to unmarshal value: %w", err)
	}

	return copied, nil
}

// storedCopy deep-copies a value about to enter a snapshot, so later
// mutation of the caller's value can never reach stored state. Copying also
// normalizes the value to the JSON object model (ints become float64).
//
// A value that cannot round-trip is stored as-is; it will fail loudly at
// templating or persistence time rather than silently vanish here.
func storedCopy(v any) any {
	copied, err := deepCopyValue(v)
	if err != nil {
		return v
	}
	return copied
}

// copyObject shallow-copies a string-keyed map. Used by snapshot transitions;
// the values themselves were deep-copied when stored.
func copyObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
