package interpreter

import (
	"context"
	"strings"
	"time"

	"github.com/use-agent/scrapeflow/driver"
)

// selectorProbeTimeout bounds how long the extractor waits for each
// candidate selector to attach before giving up on it.
const selectorProbeTimeout = 2 * time.Second

// ExtractState computes the current PageState from the live page. The URL
// carries a redirect override: if the most recent remaining pair's
// where.url differs from the live URL and is not "about:blank", the
// author's recorded URL is reported instead, so that matching still works
// across redirects to a final URL that differs from what the author wrote
// down.
func ExtractState(ctx context.Context, page driver.Page, wf *Workflow, candidateSelectors []string) (PageState, error) {
	if page.IsClosed() {
		return PageState{}, NewInterpreterError(ErrCodePageGone, "page is closed", nil)
	}

	liveURL := page.CurrentURL()

	reportedURL := liveURL
	if len(wf.Pairs) > 0 {
		last := wf.Pairs[len(wf.Pairs)-1]
		if last.Where.URL != nil && !last.Where.URL.Regex {
			if last.Where.URL.Value != liveURL && last.Where.URL.Value != "about:blank" {
				reportedURL = last.Where.URL.Value
			}
		}
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		if page.IsClosed() {
			return PageState{}, NewInterpreterError(ErrCodePageGone, "page gone during cookie extraction", err)
		}
		cookies = map[string]string{}
	}

	attached := make([]string, 0, len(candidateSelectors))
	for _, sel := range candidateSelectors {
		ok, err := page.WaitAttached(ctx, sel, selectorProbeTimeout)
		if err != nil {
			return PageState{}, NewInterpreterError(ErrCodePageGone, "page gone during selector probe", err)
		}
		if ok {
			attached = append(attached, sel)
		}
	}

	return PageState{
		URL:       reportedURL,
		Cookies:   cookies,
		Selectors: attached,
	}, nil
}

// stripCrossFrameSelectors removes candidate selectors that cross an
// iframe (":>>") or shadow-DOM (">>") boundary. Those delimiters are only
// meaningful to the in-page scraping primitives; the guard matcher
// only ever probes plain, same-document selectors. A nil input stays nil:
// the matcher distinguishes an absent selectors leaf from an explicitly
// empty one, so stripping must not conjure an empty list onto a guard
// that never declared selectors.
func stripCrossFrameSelectors(selectors []string) []string {
	if selectors == nil {
		return nil
	}
	out := make([]string, 0, len(selectors))
	for _, s := range selectors {
		if strings.Contains(s, ":>>") || strings.Contains(s, ">>") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// stripCrossFrameWorkflow returns a copy of wf with cross-frame/shadow
// selectors removed from every pair's Where.Selectors (and recursively
// from combinators), applied once per page run.
func stripCrossFrameWorkflow(wf *Workflow) *Workflow {
	out := &Workflow{Pairs: make([]Pair, len(wf.Pairs))}
	for i, p := range wf.Pairs {
		p.Where = stripCrossFrameWhere(p.Where)
		out.Pairs[i] = p
	}
	return out
}

func stripCrossFrameWhere(w Where) Where {
	w.Selectors = stripCrossFrameSelectors(w.Selectors)
	for i := range w.And {
		w.And[i] = stripCrossFrameWhere(w.And[i])
	}
	for i := range w.Or {
		w.Or[i] = stripCrossFrameWhere(w.Or[i])
	}
	if w.Not != nil {
		stripped := stripCrossFrameWhere(*w.Not)
		w.Not = &stripped
	}
	return w
}

// lastRemainingSelectors scans from the tail and returns the selectors of
// the last remaining pair that still has a non-empty selector list. This
// seeds the next state extraction so it only
// probes selectors that can still become relevant.
func lastRemainingSelectors(wf *Workflow) []string {
	for i := len(wf.Pairs) - 1; i >= 0; i-- {
		if len(wf.Pairs[i].Where.Selectors) > 0 {
			return wf.Pairs[i].Where.Selectors
		}
	}
	return nil
}
