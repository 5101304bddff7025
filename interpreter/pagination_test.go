package interpreter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/PuerkitoBio/rehttp"
)

// capturingHost records the payload of every Serializable call so a test can
// assert on the final accumulated result of a scrapeList run.
type capturingHost struct {
	recordingHost
	delivered []any
}

func (h *capturingHost) Serializable(data any) {
	h.delivered = append(h.delivered, data)
}

func TestListAccumulatorDedupesByIdentity(t *testing.T) {
	acc := newListAccumulator(0)
	added := acc.add([]Row{{"title": "A"}, {"title": "A"}, {"title": "B"}})
	if added != 2 {
		t.Fatalf("expected 2 genuinely new rows, got %d", added)
	}
	if len(acc.result()) != 2 {
		t.Fatalf("expected 2 rows in the result, got %d", len(acc.result()))
	}
}

func TestListAccumulatorRespectsLimit(t *testing.T) {
	acc := newListAccumulator(2)
	acc.add([]Row{{"title": "A"}, {"title": "B"}, {"title": "C"}})
	if !acc.full() {
		t.Fatal("expected the accumulator to report full once the limit is hit")
	}
	if len(acc.result()) != 2 {
		t.Fatalf("expected the result truncated to the limit, got %d", len(acc.result()))
	}
}

func TestListAccumulatorUnlimited(t *testing.T) {
	acc := newListAccumulator(0)
	if acc.full() {
		t.Fatal("a zero limit should never report full")
	}
}

func TestSplitSelectorList(t *testing.T) {
	got := splitSelectorList(" .next , #load-more ,, a.page-link ")
	want := []string{".next", "#load-more", "a.page-link"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestRunScrollPaginationStopsWhenExtentStopsGrowing(t *testing.T) {
	page := newFakePage("https://example.com")
	page.evalResults = []any{
		scrollExtent{ScrollHeight: 1000, ClientHeight: 800},
		[]Row{{"title": "A"}},
		scrollExtent{ScrollHeight: 1000, ClientHeight: 800},
		[]Row{{"title": "B"}},
	}
	ac := &actionCtx{page: page, host: &capturingHost{}}
	acc := newListAccumulator(0)
	args := &ScrapeListArgs{ListSelector: "#list", Fields: map[string]ScrapeSchemaField{"title": {Selector: ".title"}}}

	runScrollPagination(context.Background(), ac, args, acc, 1)

	got := acc.result()
	if len(got) != 2 || got[0]["title"] != "A" || got[1]["title"] != "B" {
		t.Fatalf("expected [A B], got %v", got)
	}
}

// TestScrapeListClickNextEvictsExhaustedSelectorAndFallsBackToHistory drives
// builtinScrapeList through a clickNext pagination whose only candidate
// selector never visibly advances the page (same URL, same content and DOM
// digest on every attempt). It must burn through all three attempts, evict
// the selector, and fall back to history.forward() plus one more
// extraction rather than looping forever or giving up silently.
func TestScrapeListClickNextEvictsExhaustedSelectorAndFallsBackToHistory(t *testing.T) {
	orig := paginationRetryBackoff
	paginationRetryBackoff = rehttp.ConstDelay(0)
	defer func() { paginationRetryBackoff = orig }()

	page := newFakePage("https://example.com")
	page.evalResults = []any{
		[]Row{{"title": "A"}}, // initial extraction
		"digest", "digest",    // attempt 0: before/after content digest, unchanged
		"digest", "digest",    // attempt 1
		"digest", "digest",    // attempt 2
		[]Row{{"title": "B"}}, // fallback extraction after history.forward()
	}
	host := &capturingHost{}
	ac := &actionCtx{page: page, host: host}

	raw := json.RawMessage(`{
		"listSelector": "#list",
		"fields": {"title": {"selector": ".title"}},
		"pagination": {"type": "clickNext", "selector": "#next"}
	}`)

	if err := builtinScrapeList(context.Background(), ac, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.clicked) != maxPaginationAttempts {
		t.Fatalf("expected the selector tried exactly %d times before eviction, got %d", maxPaginationAttempts, len(page.clicked))
	}
	if len(host.delivered) != 1 {
		t.Fatalf("expected exactly one delivered result, got %d", len(host.delivered))
	}
	rows, ok := host.delivered[0].([]Row)
	if !ok || len(rows) != 2 || rows[0]["title"] != "A" || rows[1]["title"] != "B" {
		t.Fatalf("expected [A B] (initial plus history-forward fallback), got %v", host.delivered[0])
	}
}

// TestScrapeListClickLoadMoreStopsAfterTwoConsecutiveEmptyClicks drives
// builtinScrapeList through a clickLoadMore pagination where every click
// does visibly advance the page (a changing URL) but never surfaces a row
// the accumulator hasn't already seen. The loop must stop once that
// "advanced but nothing new" streak reaches two, rather than clicking
// forever.
func TestScrapeListClickLoadMoreStopsAfterTwoConsecutiveEmptyClicks(t *testing.T) {
	page := newFakePage("https://example.com")
	page.clickURLs = []string{"https://example.com/p2", "https://example.com/p3"}
	page.evalResults = []any{
		[]Row{{"title": "A"}}, // initial extraction

		scrollExtent{ScrollHeight: 1000, ClientHeight: 500}, // iteration 1: extent before
		"ignored",                                           // iteration 1: advanceViaSelector's beforeFP (unused, URL-change wins)
		scrollExtent{ScrollHeight: 1500, ClientHeight: 500}, // iteration 1: extent after (grew)
		[]Row{}, // iteration 1: no new rows

		scrollExtent{ScrollHeight: 1500, ClientHeight: 500}, // iteration 2: extent before
		"ignored2",                                          // iteration 2: advanceViaSelector's beforeFP
		scrollExtent{ScrollHeight: 2000, ClientHeight: 500}, // iteration 2: extent after (grew)
		[]Row{}, // iteration 2: no new rows, second consecutive miss
	}
	host := &capturingHost{}
	ac := &actionCtx{page: page, host: host}

	raw := json.RawMessage(`{
		"listSelector": "#list",
		"fields": {"title": {"selector": ".title"}},
		"pagination": {"type": "clickLoadMore", "selector": "#more"}
	}`)

	if err := builtinScrapeList(context.Background(), ac, raw); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(page.clicked) != 2 {
		t.Fatalf("expected exactly 2 clicks before the no-new-items streak stopped the loop, got %d", len(page.clicked))
	}
	rows, ok := host.delivered[0].([]Row)
	if !ok || len(rows) != 1 || rows[0]["title"] != "A" {
		t.Fatalf("expected only the initial row to survive (load-more never added anything new), got %v", host.delivered[0])
	}
}

func TestFirstItemFingerprintStableForIdenticalContent(t *testing.T) {
	ac := &actionCtx{page: func() *fakePage {
		p := newFakePage("https://example.com")
		p.evalResults = []any{"same content", "same content"}
		return p
	}()}
	ctx := context.Background()
	a := firstItemFingerprint(ctx, ac, "#list")
	b := firstItemFingerprint(ctx, ac, "#list")
	if a != b {
		t.Fatalf("expected identical content to fingerprint identically, got %d vs %d", a, b)
	}
}
