package flow

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Templater resolves {{Path.To.Value}} placeholders against a flattened
// execution context. The scheduler calls resolution immediately before
// dispatching a node but does not define the placeholder grammar, so the
// collaborator is injectable.
type Templater interface {
	// Resolve interpolates one string. A string that consists of exactly one
	// placeholder resolves to the referenced value with its type preserved;
	// placeholders embedded in surrounding text are stringified in place.
	Resolve(template string, execCtx map[string]any) (any, error)
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// PathTemplater is the default Templater. Paths are dot-separated lookups
// into the execution context (gjson path syntax), e.g.
// {{sumNode.total}} or {{loop.item}}.
type PathTemplater struct{}

// NewPathTemplater creates the default path-based templater.
func NewPathTemplater() *PathTemplater { return &PathTemplater{} }

// Resolve implements Templater.
//
// An unresolvable path is an error: silently substituting null would let a
// typo in a workflow definition masquerade as a legitimate missing value.
func (p *PathTemplater) Resolve(template string, execCtx map[string]any) (any, error) {
	matches := placeholderRe.FindAllStringSubmatchIndex(template, -1)
	if len(matches) == 0 {
		return template, nil
	}

	doc, err := json.Marshal(execCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal execution context: %w", err)
	}

	// Whole-string placeholder: return the referenced value typed.
	if len(matches) == 1 && matches[0][0] == 0 && matches[0][1] == len(template) {
		path := strings.TrimSpace(template[matches[0][2]:matches[0][3]])
		res := gjson.GetBytes(doc, path)
		if !res.Exists() {
			return nil, &EngineError{Message: "unresolved template path: " + path, Code: "UNRESOLVED_PATH"}
		}
		return res.Value(), nil
	}

	// Embedded placeholders: stringify each referenced value in place.
	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(template[last:m[0]])
		path := strings.TrimSpace(template[m[2]:m[3]])
		res := gjson.GetBytes(doc, path)
		if !res.Exists() {
			return nil, &EngineError{Message: "unresolved template path: " + path, Code: "UNRESOLVED_PATH"}
		}
		sb.WriteString(stringifyResult(res))
		last = m[1]
	}
	sb.WriteString(template[last:])
	return sb.String(), nil
}

// stringifyResult renders a looked-up value for embedding in text. Scalars
// print naturally (no quotes, integers without a trailing .0); composites
// print as compact JSON.
func stringifyResult(res gjson.Result) string {
	switch res.Type {
	case gjson.String:
		return res.String()
	case gjson.Number:
		f := res.Float()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%g", f)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Null:
		return "null"
	default:
		return res.Raw
	}
}

// resolveConfig walks a node configuration and resolves every string value
// through the templater. Maps and slices are rebuilt; non-string scalars
// pass through untouched. The input configuration is never mutated.
func resolveConfig(t Templater, config map[string]any, execCtx map[string]any) (map[string]any, error) {
	if config == nil {
		return nil, nil
	}
	resolved, err := resolveValue(t, config, execCtx)
	if err != nil {
		return nil, err
	}
	return resolved.(map[string]any), nil
}

func resolveValue(t Templater, v any, execCtx map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return t.Resolve(val, execCtx)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			r, err := resolveValue(t, inner, execCtx)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			r, err := resolveValue(t, inner, execCtx)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}
