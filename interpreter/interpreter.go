// Package interpreter implements the declarative workflow interpreter: it
// drives a controllable browser page through an ordered list of where→what
// pairs, matching guards against observed page state and executing actions
// until no pair matches or the caller stops it.
package interpreter

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/use-agent/scrapeflow/driver"
)

// Options configures an Interpreter. All fields are optional; zero values
// fall back to the defaults noted below.
type Options struct {
	MaxRepeats     int // default 5
	MaxConcurrency int // default 5

	AdBlockJS string // installed on every page the interpreter drives, best-effort

	SerializableCallback func(data any)
	BinaryCallback       func(data []byte, mimeType string)
	FlagCallback         func(ctx context.Context, resume func())
	ActiveIDCallback     func(id string)
	DebugMessageCallback func(text string)
	Debug                bool
}

const (
	defaultMaxRepeats     = 5
	defaultMaxConcurrency = 5
)

// callbackHost adapts the individual Options callbacks to the Host
// interface. Unset callbacks fall back to no-ops, with a one-time warning
// so silently-discarded output doesn't go unnoticed.
type callbackHost struct {
	opts Options
}

func newCallbackHost(opts Options) *callbackHost {
	if opts.SerializableCallback == nil {
		slog.Warn("interpreter: no serializableCallback configured, scraped data will be discarded")
	}
	if opts.BinaryCallback == nil {
		slog.Warn("interpreter: no binaryCallback configured, binary artifacts will be discarded")
	}
	return &callbackHost{opts: opts}
}

func (h *callbackHost) Serializable(data any) {
	if h.opts.SerializableCallback != nil {
		h.opts.SerializableCallback(data)
	}
}

func (h *callbackHost) Binary(data []byte, mimeType string) {
	if h.opts.BinaryCallback != nil {
		h.opts.BinaryCallback(data, mimeType)
	}
}

func (h *callbackHost) ActiveID(id string) {
	if h.opts.ActiveIDCallback != nil {
		h.opts.ActiveIDCallback(id)
	}
}

func (h *callbackHost) DebugMessage(text string) {
	if h.opts.DebugMessageCallback != nil {
		h.opts.DebugMessageCallback(text)
	}
}

func (h *callbackHost) Flag(ctx context.Context, resume func()) {
	if h.opts.FlagCallback != nil {
		h.opts.FlagCallback(ctx, resume)
		return
	}
	resume()
}

// Interpreter runs one validated, parameter-ready workflow against one or
// more pages, fanning out into popups and enqueued links through a bounded
// job pool. An Interpreter instance runs at most one top-level Run
// at a time; a second concurrent Run call fails with ErrCodeAlreadyRunning.
type Interpreter struct {
	workflow *Workflow
	opts     Options
	host     Host
	schema   *schemaBuffer
	polite   *politenessGate
	render   *renderer

	running atomic.Bool
	stopped atomic.Bool
}

// New validates wf and constructs an Interpreter. Validation failure is the
// only construction-time hard error.
func New(wf *Workflow, opts Options) (*Interpreter, error) {
	if err := Validate(wf); err != nil {
		return nil, err
	}
	if opts.MaxRepeats <= 0 {
		opts.MaxRepeats = defaultMaxRepeats
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}

	return &Interpreter{
		workflow: wf,
		opts:     opts,
		host:     newCallbackHost(opts),
		schema:   newSchemaBuffer(),
		polite:   newPolitenessGate(),
		render:   newRenderer(),
	}, nil
}

// Stop requests the interpreter to exit its loops before their next
// iteration. In-flight actions run to completion; it does not force-cancel
// anything.
func (in *Interpreter) Stop() {
	in.stopped.Store(true)
}

// Run drives the workflow starting from page, substituting params into any
// `{"$param": ...}` placeholder, and blocks until every page this run opens
// (including popups and enqueued links) has finished.
func (in *Interpreter) Run(ctx context.Context, page driver.Page, params map[string]any) error {
	if !in.running.CompareAndSwap(false, true) {
		return NewInterpreterError(ErrCodeAlreadyRunning, "interpreter is already running", nil)
	}
	defer in.running.Store(false)

	initialized, err := Initialize(in.workflow, params)
	if err != nil {
		return err
	}

	pool := newJobPool(in.opts.MaxConcurrency)
	pool.Submit(ctx, func(ctx context.Context) {
		in.runPage(ctx, page, initialized, pool, nil)
	})
	pool.Wait()
	return nil
}

// runPage executes the per-page main loop for one open page, using
// workflowCopy as the per-page, already-initialized workflow to mutate.
// seedURL, if non-empty, is navigated to before the loop starts (used by
// enqueueLinks jobs, which open a fresh page with nothing loaded yet).
func (in *Interpreter) runPage(ctx context.Context, page driver.Page, workflowCopy *Workflow, pool *jobPool, seedURL *string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workflow page loop panicked", "recover", r)
		}
	}()

	if seedURL != nil {
		if err := page.Navigate(ctx, *seedURL); err != nil {
			slog.Warn("enqueued link navigation failed", "url", *seedURL, "error", err)
			return
		}
		_ = page.WaitLoadState(ctx, "networkidle")
	}

	// Fresh per-page copy, cross-frame selectors stripped from the guard
	// view (those delimiters are only meaningful to the in-page extractors).
	wf, err := deepCopyWorkflow(workflowCopy)
	if err != nil {
		slog.Error("workflow deep copy failed", "error", err)
		return
	}
	wf = stripCrossFrameWorkflow(wf)

	// Install the ad-block script on every page this interpreter drives,
	// best-effort. Stealth is installed by driver.Browser.NewPage, not here.
	if in.opts.AdBlockJS != "" {
		if err := page.InjectScript(ctx, in.opts.AdBlockJS); err != nil {
			slog.Warn("ad-block injection failed for page", "error", err)
		}
	}

	run := &pageRun{}

	cancelPopups := page.OnPopup(func(popup driver.Page) {
		pool.Submit(ctx, func(ctx context.Context) {
			in.runPage(ctx, popup, workflowCopy, pool, nil)
		})
	})
	defer cancelPopups()

	ac := &actionCtx{
		page:   page,
		host:   in.host,
		schema: in.schema,
		render: in.render,
		debug:  in.opts.Debug,
		enqueue: func(url string) {
			in.submitLink(ctx, url, workflowCopy, pool, page)
		},
	}

	for !page.IsClosed() && !in.stopped.Load() {
		// a. best-effort load-state wait
		_ = page.WaitLoadState(ctx, "load")

		// b. compute page state, then reset candidateSelectors
		state, err := ExtractState(ctx, page, wf, run.candidateSelectors)
		run.candidateSelectors = nil
		if err != nil {
			slog.Info("page gone, ending page loop", "error", err)
			return
		}

		// c. find the matching pair
		result, err := FindMatch(wf, state, run.firedIDs)
		if err != nil {
			slog.Error("guard evaluation failed, ending page loop", "error", err)
			return
		}
		if !result.Found {
			return
		}
		matched := wf.Pairs[result.Index]

		// d. repeat guard. A fired pair stays in the workflow while it
		// keeps re-matching, so consecutive firings can be counted; it is
		// removed once the loop advances to a different pair. Removing it
		// immediately after every firing would make a second consecutive
		// match impossible and the repeat limit unreachable.
		if matched.ID != "" && matched.ID == run.lastAction {
			run.repeatCount++
		} else {
			if run.lastAction != "" {
				removePair(wf, run.lastAction)
			}
			run.repeatCount = 0
		}
		run.lastAction = matched.ID
		if run.repeatCount > in.opts.MaxRepeats {
			slog.Info("repeat guard tripped, ending page loop", "pairID", matched.ID)
			return
		}

		// e. breakpoint hook
		in.host.ActiveID(matched.ID)

		// f. execute body, record firing
		if err := executeBody(ctx, ac, matched.What); err != nil {
			slog.Warn("action body failed", "pairID", matched.ID, "error", err)
		}
		run.firedIDs = append(run.firedIDs, matched.ID)

		// g. reseed candidateSelectors from the last remaining selector-bearing pair
		run.candidateSelectors = lastRemainingSelectors(wf)
	}
}

// removePair deletes the pair with the given id from the workflow copy,
// scanning from the tail like the matcher does.
func removePair(wf *Workflow, id string) {
	for i := len(wf.Pairs) - 1; i >= 0; i-- {
		if wf.Pairs[i].ID == id {
			wf.Pairs = append(wf.Pairs[:i], wf.Pairs[i+1:]...)
			return
		}
	}
}

// submitLink applies the per-host politeness gate, then submits an
// enqueueLinks job that opens a fresh page and runs the main loop on it.
func (in *Interpreter) submitLink(ctx context.Context, url string, workflowCopy *Workflow, pool *jobPool, origin driver.Page) {
	if !in.polite.Allow(ctx, url) {
		slog.Debug("enqueueLinks: link disallowed by politeness gate", "url", url)
		return
	}
	opener, ok := origin.(pageOpener)
	if !ok {
		slog.Warn("enqueueLinks: driver.Page does not support opening new pages, link dropped", "url", url)
		return
	}
	pool.Submit(ctx, func(ctx context.Context) {
		newPage, err := opener.NewPage(ctx)
		if err != nil {
			slog.Warn("enqueueLinks: failed to open new page", "url", url, "error", err)
			return
		}
		defer newPage.Close(ctx)
		u := url
		in.runPage(ctx, newPage, workflowCopy, pool, &u)
	})
}

// pageOpener is an optional capability a driver.Page may implement to open
// sibling pages in the same browser context, used by enqueueLinks. The
// go-rod-backed implementation in the driver package implements it.
type pageOpener interface {
	NewPage(ctx context.Context) (driver.Page, error)
}
