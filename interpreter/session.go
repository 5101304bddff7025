package interpreter

import "sync"

// pageRun holds the per-page bookkeeping the main loop mutates each
// iteration: firedIDs, lastAction/repeatCount for the
// repeat-guard, and candidateSelectors for the next state extraction.
type pageRun struct {
	firedIDs           []string
	lastAction         string
	repeatCount        int
	candidateSelectors []string
}

// schemaBuffer is the cumulative result buffer scrapeSchema accumulates
// into. It is scoped per-interpreter (shared across all pages of one Run,
// including popups and enqueued links), made explicit and safe for
// concurrent pages via a mutex instead of being unsynchronized global
// state (see DESIGN.md for the reasoning behind this scope choice).
type schemaBuffer struct {
	mu  sync.Mutex
	row Row
}

func newSchemaBuffer() *schemaBuffer {
	return &schemaBuffer{row: make(Row)}
}

// Merge folds newly extracted fields into the buffer using "first
// non-empty value wins" and returns a snapshot copy of the full
// accumulated row.
func (b *schemaBuffer) Merge(fields Row) Row {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range fields {
		if _, exists := b.row[k]; !exists && v != "" {
			b.row[k] = v
		}
	}
	snapshot := make(Row, len(b.row))
	for k, v := range b.row {
		snapshot[k] = v
	}
	return snapshot
}
