package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/rehttp"
	"github.com/use-agent/scrapeflow/simhash"
)

// contentSignatureDistance is the SimHash Hamming-distance threshold at or
// below which two content digests are considered "the same page". The
// digest is a word-level SimHash, which ignores word order, so items that
// were only reordered, or that differ by a word or two, read as unchanged;
// when the content digest reads as unchanged, advanceViaSelector also
// compares DOM tag-structure fingerprints against the same threshold.
const contentSignatureDistance = 3

// paginationRetryBackoff reuses rehttp's constant-delay policy for the
// "three attempts, 1-second backoff" rule of the click-driven pagination
// strategies (clickNext, clickLoadMore), rather than hand-rolling a sleep
// loop. The scroll strategies do not retry.
var paginationRetryBackoff = rehttp.ConstDelay(time.Second)

const maxPaginationAttempts = 3

// builtinScrapeList is the scrapeList entry point: it extracts the current
// page once, then drives the requested pagination strategy to accumulate
// further pages, deduping by JSON identity and capping at limit.
func builtinScrapeList(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	var args ScrapeListArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return fmt.Errorf("scrapeList: invalid args: %w", err)
	}

	acc := newListAccumulator(args.Limit)
	rows, err := evalListPage(ctx, ac, args.ListSelector, args.Fields)
	if err != nil {
		return fmt.Errorf("scrapeList: %w", err)
	}
	acc.add(rows)

	if !acc.full() {
		switch args.Pagination.Type {
		case "", "none":
			// single page, nothing further to do
		case "scrollDown":
			runScrollPagination(ctx, ac, &args, acc, 1)
		case "scrollUp":
			runScrollPagination(ctx, ac, &args, acc, -1)
		case "clickNext":
			runClickNextPagination(ctx, ac, &args, acc)
		case "clickLoadMore":
			runClickLoadMorePagination(ctx, ac, &args, acc)
		default:
			return NewInterpreterError(ErrCodeActionFailed, fmt.Sprintf("unknown pagination type %q", args.Pagination.Type), nil)
		}
	}

	ac.host.Serializable(acc.result())
	return nil
}

// listAccumulator dedups by JSON identity and enforces limit, delivering the
// complete list once at the end rather than incrementally.
type listAccumulator struct {
	limit int
	seen  map[string]struct{}
	rows  []Row
}

func newListAccumulator(limit int) *listAccumulator {
	return &listAccumulator{limit: limit, seen: make(map[string]struct{})}
}

// add returns the number of genuinely new rows it accepted, used by
// clickLoadMore's "no new items" stop condition.
func (a *listAccumulator) add(rows []Row) int {
	added := 0
	for _, row := range rows {
		if a.full() {
			break
		}
		key, err := json.Marshal(row)
		if err != nil {
			continue
		}
		if _, dup := a.seen[string(key)]; dup {
			continue
		}
		a.seen[string(key)] = struct{}{}
		a.rows = append(a.rows, row)
		added++
	}
	return added
}

func (a *listAccumulator) full() bool {
	return a.limit > 0 && len(a.rows) >= a.limit
}

func (a *listAccumulator) result() []Row {
	if a.limit > 0 && len(a.rows) > a.limit {
		return a.rows[:a.limit]
	}
	return a.rows
}

func evalListPage(ctx context.Context, ac *actionCtx, listSelector string, fields map[string]ScrapeSchemaField) ([]Row, error) {
	res, err := ac.page.Eval(ctx, scrapeListJS, listSelector, fields)
	if err != nil {
		return nil, err
	}
	var rows []Row
	if err := decodeResult(res, &rows); err != nil {
		return nil, fmt.Errorf("decode list page: %w", err)
	}
	return rows, nil
}

type scrollExtent struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

func readScrollExtent(ctx context.Context, ac *actionCtx) (scrollExtent, error) {
	res, err := ac.page.Eval(ctx, scrollExtentJS)
	if err != nil {
		return scrollExtent{}, err
	}
	var ext scrollExtent
	if err := decodeResult(res, &ext); err != nil {
		return scrollExtent{}, err
	}
	return ext, nil
}

// runScrollPagination implements scrollDown (dir=1) / scrollUp (dir=-1):
// scroll to the extreme, compare scroll extent to the previous reading; if
// unchanged, perform one final extraction and stop.
func runScrollPagination(ctx context.Context, ac *actionCtx, args *ScrapeListArgs, acc *listAccumulator, dir float64) {
	var prevHeight float64 = -1
	for !acc.full() {
		height, err := ac.page.ViewportHeight(ctx)
		if err != nil {
			ac.debugf("scroll pagination: viewport height: %v", err)
			return
		}
		if err := ac.page.Scroll(ctx, 0, dir*float64(height)*50); err != nil {
			ac.debugf("scroll pagination: scroll: %v", err)
			return
		}
		time.Sleep(300 * time.Millisecond)

		ext, err := readScrollExtent(ctx, ac)
		if err != nil {
			ac.debugf("scroll pagination: read extent: %v", err)
			return
		}
		if ext.ScrollHeight == prevHeight {
			rows, err := evalListPage(ctx, ac, args.ListSelector, args.Fields)
			if err != nil {
				ac.debugf("scroll pagination: final extraction: %v", err)
			} else {
				acc.add(rows)
			}
			return
		}
		prevHeight = ext.ScrollHeight

		rows, err := evalListPage(ctx, ac, args.ListSelector, args.Fields)
		if err != nil {
			ac.debugf("scroll pagination: extraction: %v", err)
			return
		}
		acc.add(rows)
	}
}

// runClickNextPagination implements clickNext: candidate selectors
// are comma-separated, each tried for up to three attempts with rehttp's
// constant 1-second backoff; a selector that exhausts its attempts is
// permanently evicted. If no selector ever advances the page, it falls
// back to history.forward() once, then terminates.
func runClickNextPagination(ctx context.Context, ac *actionCtx, args *ScrapeListArgs, acc *listAccumulator) {
	candidates := splitSelectorList(args.Pagination.Selector)
	visited := map[string]struct{}{ac.page.CurrentURL(): {}}

	advancedEver := false
	for len(candidates) > 0 && !acc.full() {
		selector := candidates[0]
		if advanceViaSelector(ctx, ac, selector, args.ListSelector, visited) {
			advancedEver = true
			rows, err := evalListPage(ctx, ac, args.ListSelector, args.Fields)
			if err != nil {
				ac.debugf("clickNext: extraction after advance: %v", err)
				return
			}
			acc.add(rows)
			visited[ac.page.CurrentURL()] = struct{}{}
			continue
		}
		ac.debugf("clickNext: selector %q exhausted attempts, evicting", selector)
		candidates = candidates[1:]
	}

	if !advancedEver && !acc.full() {
		if err := ac.page.History(ctx, "forward"); err == nil {
			rows, err := evalListPage(ctx, ac, args.ListSelector, args.Fields)
			if err == nil {
				acc.add(rows)
			}
		}
	}
}

// advanceViaSelector tries one candidate selector up to maxPaginationAttempts
// times, reporting success the first time a click visibly advances the page
// (new URL, or a changed content digest of the list under listSelector).
func advanceViaSelector(ctx context.Context, ac *actionCtx, selector, listSelector string, visited map[string]struct{}) bool {
	for attempt := 0; attempt < maxPaginationAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(paginationRetryBackoff(rehttp.Attempt{Index: attempt}))
		}

		beforeURL := ac.page.CurrentURL()
		beforeFP := firstItemFingerprint(ctx, ac, listSelector)
		beforeStructFP := pageStructureFingerprint(ctx, ac)

		if err := ac.page.Click(ctx, selector, false); err != nil {
			continue
		}
		time.Sleep(500 * time.Millisecond)

		afterURL := ac.page.CurrentURL()
		if afterURL != beforeURL {
			if _, seen := visited[afterURL]; !seen {
				return true
			}
			continue
		}
		afterFP := firstItemFingerprint(ctx, ac, listSelector)
		if simhash.Distance(beforeFP, afterFP) > contentSignatureDistance {
			return true
		}
		// Small lists can share an identical text prefix across pages, which
		// defeats the content digest above; fall back to comparing DOM tag
		// structure, which shifts even when the visible text doesn't.
		if simhash.Distance(beforeStructFP, pageStructureFingerprint(ctx, ac)) > contentSignatureDistance {
			return true
		}
	}
	return false
}

// pageStructureFingerprint reduces the page's current DOM tag shape to a
// SimHash fingerprint, used as a secondary advance signal alongside
// firstItemFingerprint.
func pageStructureFingerprint(ctx context.Context, ac *actionCtx) uint64 {
	html, err := ac.page.HTML(ctx)
	if err != nil {
		return 0
	}
	return simhash.FingerprintDOM(html)
}

// firstItemFingerprint reads the content-signature text of the first items
// under listSelector and reduces it to a SimHash fingerprint so the caller
// can compare pages by near-duplicate distance rather than exact equality.
func firstItemFingerprint(ctx context.Context, ac *actionCtx, listSelector string) uint64 {
	res, err := ac.page.Eval(ctx, firstItemDigestJS, listSelector)
	if err != nil {
		return 0
	}
	return simhash.Fingerprint(res.Str())
}

// runClickLoadMorePagination implements clickLoadMore: click, wait,
// scroll to bottom, scrape again, stopping on either of two conditions:
// scroll extent unchanged after a click, or two consecutive clicks with no
// new items.
func runClickLoadMorePagination(ctx context.Context, ac *actionCtx, args *ScrapeListArgs, acc *listAccumulator) {
	selector := args.Pagination.Selector
	noNewStreak := 0

	for !acc.full() {
		before, err := readScrollExtent(ctx, ac)
		if err != nil {
			ac.debugf("clickLoadMore: read extent: %v", err)
			return
		}

		if !advanceViaSelector(ctx, ac, selector, args.ListSelector, map[string]struct{}{}) {
			ac.debugf("clickLoadMore: selector %q exhausted attempts", selector)
			return
		}

		height, err := ac.page.ViewportHeight(ctx)
		if err == nil {
			_ = ac.page.Scroll(ctx, 0, float64(height)*50)
		}
		time.Sleep(300 * time.Millisecond)

		after, err := readScrollExtent(ctx, ac)
		if err != nil {
			ac.debugf("clickLoadMore: read extent: %v", err)
			return
		}
		if after.ScrollHeight == before.ScrollHeight {
			return
		}

		rows, err := evalListPage(ctx, ac, args.ListSelector, args.Fields)
		if err != nil {
			ac.debugf("clickLoadMore: extraction: %v", err)
			return
		}
		added := acc.add(rows)
		if added == 0 {
			noNewStreak++
			if noNewStreak >= 2 {
				return
			}
		} else {
			noNewStreak = 0
		}
	}
}

func splitSelectorList(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
