package interpreter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ysmood/gson"

	"github.com/use-agent/scrapeflow/cleaner"
)

// decodeResult re-marshals a gson evaluation result into a concrete Go
// shape; gson only offers typed scalar accessors, not struct decoding.
func decodeResult(res gson.JSON, out any) error {
	data, err := json.Marshal(res.Val())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// builtinScreenshot captures a PNG and delivers it via the binary callback.
func builtinScreenshot(ctx context.Context, ac *actionCtx) error {
	png, err := ac.page.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	ac.host.Binary(png, "image/png")
	return nil
}

// builtinScrape extracts text/attributes for one element (or the body if
// selector is empty) and delivers it via the serializable callback. A bare
// string (or single-element list) is shorthand for {selector: ...}; an
// object additionally accepts markdown/citations to run the extracted HTML
// through the readability + markdown renderer before emitting, a two-stage
// clean pipeline.
func builtinScrape(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	args := parseScrapeArgs(raw)

	res, err := ac.page.Eval(ctx, scrapeSingleJS, args.Selector)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if res.Nil() {
		return fmt.Errorf("scrape: selector %q matched nothing", args.Selector)
	}
	text := res.Get("text").Str()
	html := res.Get("html").Str()

	out := map[string]string{"text": text, "html": html}
	if args.Markdown {
		md, err := ac.render.toMarkdown(html, ac.page.CurrentURL(), args)
		if err != nil {
			ac.debugf("scrape: markdown render failed, emitting raw fields: %v", err)
		} else {
			out["markdown"] = md
			ac.debugf("scrape: markdown render %d -> %d estimated tokens", cleaner.EstimateTokens(html), cleaner.EstimateTokens(md))
		}
	}
	ac.host.Serializable(out)
	return nil
}

// parseScrapeArgs normalizes the scrape built-in's args: absent means
// whole-body; a bare string/single-element list is shorthand for
// {selector: ...}; an object is decoded directly.
func parseScrapeArgs(raw json.RawMessage) ScrapeArgs {
	var args ScrapeArgs
	if len(raw) == 0 {
		return args
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return args
	}
	switch t := v.(type) {
	case string:
		args.Selector = t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				args.Selector = s
			}
		}
	case map[string]any:
		_ = json.Unmarshal(raw, &args)
	}
	return args
}

// builtinScrapeSchema extracts each declared field, merges it into the
// cumulative result buffer (never overwriting a field once set), and
// emits the merged snapshot.
func builtinScrapeSchema(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	var fields map[string]ScrapeSchemaField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("scrapeSchema: invalid args: %w", err)
	}

	res, err := ac.page.Eval(ctx, scrapeSchemaJS, fields)
	if err != nil {
		return fmt.Errorf("scrapeSchema: %w", err)
	}

	extracted := make(Row, len(fields))
	for name := range fields {
		extracted[name] = res.Get(name).Str()
	}

	merged := ac.schema.Merge(extracted)
	ac.host.Serializable(merged)
	return nil
}

// builtinScrapeListAuto returns heuristic list-item candidates for
// auto-detection; it never paginates.
func builtinScrapeListAuto(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	listSelector := firstArgString(raw)
	res, err := ac.page.Eval(ctx, scrapeListAutoJS, listSelector)
	if err != nil {
		return fmt.Errorf("scrapeListAuto: %w", err)
	}
	var candidates []map[string]string
	if err := decodeResult(res, &candidates); err != nil {
		return fmt.Errorf("scrapeListAuto: decode result: %w", err)
	}
	ac.host.Serializable(candidates)
	return nil
}

// builtinScroll scrolls the viewport by `pages` viewports (default 1;
// direction "up" reverses it), one Scroll call per viewport with no pause
// between them.
func builtinScroll(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	var args struct {
		Pages     int    `json:"pages"`
		Direction string `json:"direction"`
	}
	if len(raw) > 0 {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			switch t := v.(type) {
			case float64:
				args.Pages = int(t)
			case map[string]any:
				_ = json.Unmarshal(raw, &args)
			}
		}
	}
	if args.Pages <= 0 {
		args.Pages = 1
	}

	height, err := ac.page.ViewportHeight(ctx)
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}

	delta := float64(height)
	if args.Direction == "up" {
		delta = -delta
	}
	for i := 0; i < args.Pages; i++ {
		if err := ac.page.Scroll(ctx, 0, delta); err != nil {
			return fmt.Errorf("scroll step %d: %w", i, err)
		}
	}
	return nil
}

// builtinScript evaluates an asynchronous function body with `page` and
// `log` bindings available. Since the driver abstraction
// does not expose a raw page handle to in-page JS, `page` here is the
// document itself — scripts operate on the DOM, matching how the other
// primitives work.
func builtinScript(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	var code string
	if err := json.Unmarshal(raw, &code); err != nil {
		return fmt.Errorf("script: invalid args: %w", err)
	}
	wrapped := `() => { const page = document; const log = (...a) => console.log(...a); return (async () => {` + code + `})(); }`
	if _, err := ac.page.Eval(ctx, wrapped); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// builtinFlag emits a flag event and blocks until the host resumes it.
func builtinFlag(ctx context.Context, ac *actionCtx) error {
	done := make(chan struct{})
	ac.host.Flag(ctx, func() { close(done) })
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// builtinEnqueueLinks evaluates href of all matched elements and submits a
// job per link to the concurrency coordinator, then closes the current
// page — its run ends here, the links it discovered continue on their own
// pages.
func builtinEnqueueLinks(ctx context.Context, ac *actionCtx, raw json.RawMessage) error {
	selector := firstArgString(raw)
	if selector == "" {
		return fmt.Errorf("enqueueLinks requires a selector")
	}
	js := `(selector) => Array.from(document.querySelectorAll(selector)).map(a => a.href).filter(Boolean)`
	res, err := ac.page.Eval(ctx, js, selector)
	if err != nil {
		return fmt.Errorf("enqueueLinks: %w", err)
	}
	var hrefs []string
	if err := decodeResult(res, &hrefs); err != nil {
		return fmt.Errorf("enqueueLinks: decode hrefs: %w", err)
	}
	for _, href := range hrefs {
		ac.enqueue(href)
	}
	if err := ac.page.Close(ctx); err != nil {
		ac.debugf("enqueueLinks: close origin page: %v", err)
	}
	return nil
}

func firstArgString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
