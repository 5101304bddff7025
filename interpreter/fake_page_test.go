package interpreter

import (
	"context"
	"time"

	"github.com/ysmood/gson"

	"github.com/use-agent/scrapeflow/driver"
)

// fakePage is a minimal, pure-Go driver.Page double: no browser involved.
// evalResults lets a test queue up canned Eval() return values by call
// order; attached controls which selectors WaitAttached reports as present.
type fakePage struct {
	url         string
	cookies     map[string]string
	attached    map[string]bool
	evalResults []any
	evalCalls   int
	clickErr    error
	clicked     []string
	clickURLs   []string // optional queue: Click sets url to the next entry, simulating a navigating click
	closed      bool
	calls       []string // dotted Call() invocations, for assertions
	callArgs    [][]any  // args passed to each Call() invocation, in order
}

func newFakePage(url string) *fakePage {
	return &fakePage{url: url, cookies: map[string]string{}, attached: map[string]bool{}}
}

func (p *fakePage) Navigate(ctx context.Context, url string) error { p.url = url; return nil }
func (p *fakePage) CurrentURL() string                             { return p.url }
func (p *fakePage) HTML(ctx context.Context) (string, error)       { return "<html></html>", nil }
func (p *fakePage) Cookies(ctx context.Context) (map[string]string, error) {
	return p.cookies, nil
}

func (p *fakePage) WaitAttached(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	return p.attached[selector], nil
}

func (p *fakePage) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	if p.evalCalls >= len(p.evalResults) {
		return gson.New(nil), nil
	}
	v := p.evalResults[p.evalCalls]
	p.evalCalls++
	return gson.New(v), nil
}

func (p *fakePage) Click(ctx context.Context, selector string, force bool) error {
	p.clicked = append(p.clicked, selector)
	if len(p.clickURLs) > 0 {
		p.url, p.clickURLs = p.clickURLs[0], p.clickURLs[1:]
	}
	return p.clickErr
}

func (p *fakePage) Type(ctx context.Context, selector, text string) error { return nil }
func (p *fakePage) Press(ctx context.Context, selector, key string) error { return nil }
func (p *fakePage) Scroll(ctx context.Context, dx, dy float64) error      { return nil }
func (p *fakePage) ViewportHeight(ctx context.Context) (int, error)       { return 800, nil }
func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error)        { return []byte("png"), nil }
func (p *fakePage) WaitLoadState(ctx context.Context, state string) error { return nil }
func (p *fakePage) History(ctx context.Context, direction string) error   { return nil }
func (p *fakePage) Close(ctx context.Context) error                       { p.closed = true; return nil }
func (p *fakePage) IsClosed() bool                                        { return p.closed }
func (p *fakePage) OnPopup(handler func(driver.Page)) (cancel func())     { return func() {} }
func (p *fakePage) InjectScript(ctx context.Context, js string) error     { return nil }

func (p *fakePage) Call(ctx context.Context, method string, args []any) (any, error) {
	p.calls = append(p.calls, method)
	p.callArgs = append(p.callArgs, args)
	return nil, nil
}
