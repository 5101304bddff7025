package interpreter

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Initialize walks a deep copy of wf's actions, substituting any Args value
// of the shape {"$param": "<name>"} (anywhere in a nested JSON structure)
// with the matching entry from params. Unresolved placeholders are left
// as-is: they will fail at action-execution time (ErrCodeParamMissing),
// which is an acceptable failure mode that must simply be surfaced.
//
// Initialize never mutates wf; it returns a fresh copy.
func Initialize(wf *Workflow, params map[string]any) (*Workflow, error) {
	cp, err := deepCopyWorkflow(wf)
	if err != nil {
		return nil, NewInterpreterError(ErrCodeValidation, "failed to copy workflow", err)
	}
	for i := range cp.Pairs {
		// Stable pair IDs are required for firedIds/repeat-guard bookkeeping;
		// a workflow author who omits id gets one assigned here rather than
		// leaving every untitled pair sharing the empty string.
		if cp.Pairs[i].ID == "" {
			cp.Pairs[i].ID = uuid.NewString()
		}
		for j := range cp.Pairs[i].What {
			raw := cp.Pairs[i].What[j].Args
			if len(raw) == 0 {
				continue
			}
			var v any
			if err := json.Unmarshal(raw, &v); err != nil {
				// Leave args untouched; they'll fail structurally at dispatch.
				continue
			}
			substituted := substitute(v, params)
			out, err := json.Marshal(substituted)
			if err != nil {
				continue
			}
			cp.Pairs[i].What[j].Args = out
		}
	}
	return cp, nil
}

// substitute recursively replaces {"$param": "name"} placeholders found
// anywhere in v with the corresponding value from params. A placeholder
// with no matching entry in params is left untouched.
func substitute(v any, params map[string]any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if name, ok := t["$param"]; ok {
				if nameStr, ok := name.(string); ok {
					if val, found := params[nameStr]; found {
						return val
					}
				}
				return t
			}
		}
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = substitute(child, params)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = substitute(child, params)
		}
		return out
	default:
		return v
	}
}

// deepCopyWorkflow returns a structurally independent copy of wf via a
// JSON round-trip. This is the interpreter's one deep-copy primitive; both
// Initialize and the main loop use it.
func deepCopyWorkflow(wf *Workflow) (*Workflow, error) {
	raw, err := json.Marshal(wf)
	if err != nil {
		return nil, err
	}
	var cp Workflow
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}
