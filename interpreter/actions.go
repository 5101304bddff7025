package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/use-agent/scrapeflow/driver"
)

// defaultActionTimeout is the per-action deadline absent an explicit
// override (Action.Timeout).
const defaultActionTimeout = 10 * time.Second

// interActionDelay is the short fixed pause between actions, to avoid
// driver race windows.
const interActionDelay = 500 * time.Millisecond

// actionCtx bundles everything a built-in primitive or dotted-path
// dispatch needs, threaded through executeBody.
type actionCtx struct {
	page    driver.Page
	host    Host
	schema  *schemaBuffer
	render  *renderer
	enqueue func(url string) // submits a popup/link job to the concurrency coordinator
	debug   bool
}

func (a *actionCtx) debugf(format string, args ...any) {
	if a.debug {
		a.host.DebugMessage(fmt.Sprintf(format, args...))
	}
}

// executeBody runs a pair's body to completion. A returned error means the
// body failed and must NOT be treated as a normal completion by the main
// loop. A nil error covers both
// full success and the click-failure "skip remaining body silently"
// outcome, since from the main loop's point of view both end the pair's
// turn normally.
func executeBody(ctx context.Context, ac *actionCtx, actions []Action) error {
	for i, action := range actions {
		skip, err := executeSingleAction(ctx, ac, action)
		if err != nil {
			return fmt.Errorf("action %d (%s) failed: %w", i, action.Action, err)
		}
		if skip {
			ac.debugf("action %d (%s) exhausted retries, skipping remaining body", i, action.Action)
			return nil
		}
		time.Sleep(interActionDelay)
	}
	return nil
}

// executeSingleAction dispatches one action. skip reports the click
// "exhausted retries, abandon the rest of the body" outcome.
func executeSingleAction(ctx context.Context, ac *actionCtx, action Action) (skip bool, err error) {
	timeout := defaultActionTimeout
	if action.Timeout > 0 {
		timeout = time.Duration(action.Timeout) * time.Millisecond
	}
	actionCtxDeadline, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if name, unresolved := unresolvedParam(action.Args); unresolved {
		return false, NewInterpreterError(ErrCodeParamMissing,
			fmt.Sprintf("action %s references parameter %q with no value", action.Action, name), nil)
	}

	switch action.Action {
	case "screenshot":
		return false, builtinScreenshot(actionCtxDeadline, ac)
	case "enqueueLinks":
		return false, builtinEnqueueLinks(actionCtxDeadline, ac, action.Args)
	case "scrape":
		return false, builtinScrape(actionCtxDeadline, ac, action.Args)
	case "scrapeSchema":
		return false, builtinScrapeSchema(actionCtxDeadline, ac, action.Args)
	case "scrapeList":
		return false, builtinScrapeList(actionCtxDeadline, ac, action.Args)
	case "scrapeListAuto":
		return false, builtinScrapeListAuto(actionCtxDeadline, ac, action.Args)
	case "scroll":
		return false, builtinScroll(actionCtxDeadline, ac, action.Args)
	case "script":
		return false, builtinScript(actionCtxDeadline, ac, action.Args)
	case "flag":
		return false, builtinFlag(ctx, ac)
	case "waitForLoadState":
		return false, execWithLoadStateRetry(actionCtxDeadline, ac, action.Args)
	case "click":
		return execClickWithRetry(actionCtxDeadline, ac, action.Args)
	default:
		return false, execDotted(actionCtxDeadline, ac, action)
	}
}

// execWithLoadStateRetry implements the waitForLoadState recovery rule:
// on any failure, retry once with "domcontentloaded".
func execWithLoadStateRetry(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	args, err := normalizeArgs(raw)
	if err != nil {
		return err
	}
	state := firstStringArg(args, "load")
	if err := ac.page.WaitLoadState(ctx, state); err != nil {
		return ac.page.WaitLoadState(ctx, "domcontentloaded")
	}
	return nil
}

// execClickWithRetry implements the click recovery rule: on failure retry
// once with force. On a second failure, skip=true.
func execClickWithRetry(ctx context.Context, ac *actionCtx, raw json.RawMessage) (skip bool, err error) {
	args, err := normalizeArgs(raw)
	if err != nil {
		return false, err
	}
	selector := firstStringArg(args, "")
	if selector == "" {
		return false, fmt.Errorf("click requires a selector")
	}
	if err := ac.page.Click(ctx, selector, false); err == nil {
		return false, nil
	}
	if err := ac.page.Click(ctx, selector, true); err != nil {
		return true, nil
	}
	return false, nil
}

// execDotted resolves action.Action as a dotted path into the driver API
// and invokes it with normalized args.
func execDotted(ctx context.Context, ac *actionCtx, action Action) error {
	args, err := normalizeArgs(action.Args)
	if err != nil {
		return err
	}
	// type/press accept at most two positional args (selector, value) —
	// extras are ignored to prevent accidental modifier overrides from
	// leaking secrets.
	if action.Action == "type" || action.Action == "press" {
		if len(args) > 2 {
			args = args[:2]
		}
	}
	_, err = ac.page.Call(ctx, action.Action, args)
	return err
}

// normalizeArgs shapes an action's raw args: absent args means none; a list
// is spread positionally; any other value is passed as a single argument.
func normalizeArgs(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("invalid args: %w", err)
	}
	if v == nil {
		return nil, nil
	}
	if list, ok := v.([]any); ok {
		return list, nil
	}
	return []any{v}, nil
}

// unresolvedParam reports whether a {"$param": "<name>"} placeholder
// survived initialization anywhere inside raw, returning the first
// unresolved parameter name found.
func unresolvedParam(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", false
	}
	return findPlaceholder(v)
}

func findPlaceholder(v any) (string, bool) {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 {
			if name, ok := t["$param"].(string); ok {
				return name, true
			}
		}
		for _, child := range t {
			if name, found := findPlaceholder(child); found {
				return name, true
			}
		}
	case []any:
		for _, child := range t {
			if name, found := findPlaceholder(child); found {
				return name, true
			}
		}
	}
	return "", false
}

func firstStringArg(args []any, fallback string) string {
	if len(args) == 0 {
		return fallback
	}
	if s, ok := args[0].(string); ok {
		return s
	}
	return fallback
}
