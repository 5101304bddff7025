// Package models holds the wire types for the demo HTTP host
// (cmd/workflow-server): small, JSON-tagged request/response structs with
// no behavior of their own.
package models

import "encoding/json"

// RunRequest is the body of POST /api/v1/run.
type RunRequest struct {
	// Workflow is the raw workflow document; decoded with
	// interpreter.Validate semantics, not here, so a malformed workflow
	// produces the same InterpreterError the library caller would see.
	Workflow json.RawMessage `json:"workflow"`

	// URL is the page to open before running the workflow.
	URL string `json:"url"`

	// Params seeds {"$param": ...} placeholders in the workflow.
	Params map[string]any `json:"params,omitempty"`
}
