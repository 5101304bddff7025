// Package driver abstracts the controllable browser page the interpreter
// drives. The interpreter never imports go-rod directly; it only sees this
// interface, so built-in scraping primitives and the dynamic dotted-path
// dispatch (C4) can both be tested against a fake without a real browser.
//
// Dotted-path actions are resolved through Call, which maintains an
// explicit allow-list of exposed methods instead of reflecting into an
// arbitrary object graph.
package driver

import (
	"context"
	"time"

	"github.com/ysmood/gson"
)

// Cookie is a single browser cookie, scoped to the URL it was read for.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
}

// Page is the controllable browser page the interpreter observes and acts
// on. Implementations must be safe to call sequentially from a single
// interpretation loop; concurrent popups/links each get their own Page.
type Page interface {
	// Navigate loads url and waits for the navigation to commit (not for
	// load completion — callers use WaitLoadState for that).
	Navigate(ctx context.Context, url string) error

	// CurrentURL returns the page's live URL.
	CurrentURL() string

	// HTML returns the fully rendered DOM serialized to a string.
	HTML(ctx context.Context) (string, error)

	// Cookies returns cookies visible to the current URL, flattened to a
	// name→value mapping.
	Cookies(ctx context.Context) (map[string]string, error)

	// WaitAttached probes selector with a bounded timeout and reports
	// whether at least one matching element is attached to the DOM.
	// It never returns an error for "not found" — only for page-gone.
	WaitAttached(ctx context.Context, selector string, timeout time.Duration) (bool, error)

	// Eval evaluates a JS expression/function body in the page context and
	// returns its result.
	Eval(ctx context.Context, js string, args ...any) (gson.JSON, error)

	// Click finds selector and clicks it. If force is true, the click
	// bypasses actionability checks.
	Click(ctx context.Context, selector string, force bool) error

	// Type enters text into the element matching selector.
	Type(ctx context.Context, selector, text string) error

	// Press sends a single key to the element matching selector.
	Press(ctx context.Context, selector, key string) error

	// Scroll scrolls the viewport by (dx, dy) pixels.
	Scroll(ctx context.Context, dx, dy float64) error

	// ViewportHeight returns window.innerHeight, used to convert a
	// "viewports" scroll amount into pixels.
	ViewportHeight(ctx context.Context) (int, error)

	// Screenshot captures the current viewport as a PNG.
	Screenshot(ctx context.Context) ([]byte, error)

	// WaitLoadState waits for the named load state ("load",
	// "domcontentloaded", "networkidle"). On failure the action executor
	// retries once with "domcontentloaded".
	WaitLoadState(ctx context.Context, state string) error

	// History navigates session history; direction is "forward" or "back".
	History(ctx context.Context, direction string) error

	// Close releases the page. Idempotent.
	Close(ctx context.Context) error

	// IsClosed reports whether the page has been closed or become
	// unresponsive (e.g. the tab crashed or the host closed it).
	IsClosed() bool

	// OnPopup registers handler to be invoked once per popup window the
	// page opens (window.open, target=_blank). The returned func cancels
	// the registration.
	OnPopup(handler func(Page)) (cancel func())

	// InjectScript installs js to run on every future document load of this
	// page (idempotent across repeat calls). Used by the main loop to
	// install the ad-block script on every page it drives, including
	// popups, which are not created through Browser.NewPage.
	InjectScript(ctx context.Context, js string) error

	// Call invokes a generically-named driver method with positional args.
	// Implementations expose a fixed allow-list; unknown methods return an
	// error rather than silently no-op'ing.
	Call(ctx context.Context, method string, args []any) (any, error)
}
