package interpreter

import "context"

// Host is the explicit collaborator interface the interpreter calls back
// into: serializable/binary results, and the three small events (flag,
// activeId, debugMessage). This callback surface is small enough to model
// as a fixed interface rather than generic pub/sub, so that's what this is.
type Host interface {
	// Serializable delivers a scraped record (single scrape, schema
	// snapshot, or a completed pagination result) to the host.
	Serializable(data any)

	// Binary delivers a binary artifact (currently only screenshots) with
	// its MIME type.
	Binary(data []byte, mimeType string)

	// ActiveID reports the id of the pair about to execute, for breakpoint
	// UIs.
	ActiveID(id string)

	// DebugMessage delivers a diagnostic log line. Only called when debug
	// mode is enabled.
	DebugMessage(text string)

	// Flag is invoked when a `flag` action fires. The host must call
	// resume to let the loop continue; withholding it pauses the loop
	// indefinitely.
	Flag(ctx context.Context, resume func())
}
