package interpreter

import (
	"encoding/json"
	"fmt"
)

// knownGuardOperators are the only "$"-prefixed keys a Where clause may
// carry. Any other "$" key is a guard-undefined-operator error: fatal
// for the run, surfaced here at unmarshal time so it is caught as early as
// construction/parameter-substitution rather than deep inside a match call.
var knownGuardOperators = map[string]bool{
	"$and":    true,
	"$or":     true,
	"$not":    true,
	"$before": true,
	"$after":  true,
}

// UnmarshalJSON implements custom decoding so that unrecognized "$"-prefixed
// keys are rejected rather than silently ignored (the default behavior of
// unmarshaling into a struct).
func (w *Where) UnmarshalJSON(data []byte) error {
	type alias Where // avoid infinite recursion into this UnmarshalJSON
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if len(key) > 0 && key[0] == '$' && !knownGuardOperators[key] {
			return NewInterpreterError(
				ErrCodeGuardOperator,
				fmt.Sprintf("unknown guard operator %q", key),
				nil,
			)
		}
	}

	*w = Where(a)
	return nil
}
