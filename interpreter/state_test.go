package interpreter

import (
	"context"
	"testing"
)

func TestStripCrossFrameSelectors(t *testing.T) {
	in := []string{"#plain", "iframe:>> #inside", "shadow-host >> #inner"}
	out := stripCrossFrameSelectors(in)
	if len(out) != 1 || out[0] != "#plain" {
		t.Fatalf("expected only the plain selector to survive, got %v", out)
	}
}

// TestStripCrossFrameWorkflowPreservesAbsentSelectors guards against the
// strip pass turning a guard with no selectors leaf into one with an
// explicitly empty list: the two are different to the matcher (an absent
// leaf is skipped, an empty list only matches an empty state), so a
// catch-all {} guard or a URL/cookie/meta-only guard must come out of
// stripping with Selectors still nil.
func TestStripCrossFrameWorkflowPreservesAbsentSelectors(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{
		{ID: "catchall", Where: Where{}},
		{ID: "by-url", Where: Where{URL: &Matcher{Value: "https://example.com"}}},
		{ID: "framed", Where: Where{Selectors: []string{"iframe:>> #inside", "#plain"}}},
	}}
	out := stripCrossFrameWorkflow(wf)

	if out.Pairs[0].Where.Selectors != nil || !out.Pairs[0].Where.IsEmpty() {
		t.Fatalf("expected the catch-all guard to stay empty, got %#v", out.Pairs[0].Where)
	}
	if out.Pairs[1].Where.Selectors != nil {
		t.Fatalf("expected the URL-only guard to keep an absent selectors leaf, got %v", out.Pairs[1].Where.Selectors)
	}
	if len(out.Pairs[2].Where.Selectors) != 1 || out.Pairs[2].Where.Selectors[0] != "#plain" {
		t.Fatalf("expected only the plain selector to survive, got %v", out.Pairs[2].Where.Selectors)
	}

	// The stripped catch-all must still match a state that has attached
	// selectors.
	ok, err := Match(out.Pairs[0].Where, PageState{URL: "https://example.com", Selectors: []string{"#x"}}, nil)
	if err != nil || !ok {
		t.Fatalf("stripped empty guard should match any state, got ok=%v err=%v", ok, err)
	}
}

func TestLastRemainingSelectors(t *testing.T) {
	wf := &Workflow{Pairs: []Pair{
		{Where: Where{Selectors: []string{"#first"}}},
		{Where: Where{}},
		{Where: Where{Selectors: []string{"#last"}}},
	}}
	sel := lastRemainingSelectors(wf)
	if len(sel) != 1 || sel[0] != "#last" {
		t.Fatalf("expected the last pair's selectors, got %v", sel)
	}
}

func TestExtractStateReportsAuthorURLAcrossRedirect(t *testing.T) {
	page := newFakePage("https://example.com/final")
	wf := &Workflow{Pairs: []Pair{
		{Where: Where{URL: &Matcher{Value: "https://example.com/start"}}},
	}}
	state, err := ExtractState(context.Background(), page, wf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if state.URL != "https://example.com/start" {
		t.Fatalf("expected the author's recorded URL on redirect, got %q", state.URL)
	}
}

func TestExtractStateUsesLiveURLWhenNoOverrideApplies(t *testing.T) {
	page := newFakePage("https://example.com/start")
	wf := &Workflow{Pairs: []Pair{
		{Where: Where{URL: &Matcher{Value: "https://example.com/start"}}},
	}}
	state, err := ExtractState(context.Background(), page, wf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if state.URL != "https://example.com/start" {
		t.Fatalf("expected the live URL, got %q", state.URL)
	}
}

func TestExtractStateProbesCandidateSelectors(t *testing.T) {
	page := newFakePage("https://example.com")
	page.attached["#present"] = true
	wf := &Workflow{Pairs: []Pair{{}}}
	state, err := ExtractState(context.Background(), page, wf, []string{"#present", "#absent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(state.Selectors) != 1 || state.Selectors[0] != "#present" {
		t.Fatalf("expected only the attached selector, got %v", state.Selectors)
	}
}

func TestExtractStatePageGone(t *testing.T) {
	page := newFakePage("https://example.com")
	page.closed = true
	_, err := ExtractState(context.Background(), page, &Workflow{}, nil)
	ie, ok := err.(*InterpreterError)
	if !ok || ie.Code != ErrCodePageGone {
		t.Fatalf("expected ErrCodePageGone, got %v", err)
	}
}
