package interpreter

import "testing"

func TestSchemaBufferMergeFirstNonEmptyWins(t *testing.T) {
	b := newSchemaBuffer()

	snap := b.Merge(Row{"title": "First Title", "author": ""})
	if snap["title"] != "First Title" {
		t.Fatalf("expected title to be set, got %q", snap["title"])
	}
	if _, ok := snap["author"]; ok {
		t.Fatal("expected an empty value not to be recorded")
	}

	snap = b.Merge(Row{"title": "Second Title", "author": "Alice"})
	if snap["title"] != "First Title" {
		t.Fatalf("expected the first non-empty title to win, got %q", snap["title"])
	}
	if snap["author"] != "Alice" {
		t.Fatalf("expected author to be filled in once available, got %q", snap["author"])
	}
}

func TestSchemaBufferMergeReturnsIndependentSnapshot(t *testing.T) {
	b := newSchemaBuffer()
	snap := b.Merge(Row{"a": "1"})
	snap["a"] = "mutated"
	snap2 := b.Merge(nil)
	if snap2["a"] != "1" {
		t.Fatal("expected the internal row to be unaffected by mutating a returned snapshot")
	}
}
