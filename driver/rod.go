package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
)

// rodAllowedMethods is the fixed dispatch table for dotted-path actions
// that are not one of the built-in scraping/navigation primitives. Each
// entry is a thin, explicit wrapper — there is no reflection into rod's
// object graph. An unlisted method makes Call return an error when the
// action runs; interpreter.Validate does not check action names against
// this table.
var rodAllowedMethods = map[string]func(ctx context.Context, p *RodPage, args []any) (any, error){
	"type":            rodType,
	"press":           rodPress,
	"hover":           rodHover,
	"focus":           rodFocus,
	"selectOption":    rodSelectOption,
	"waitForSelector": rodWaitForSelector,
	"goBack":          rodGoBack,
	"goForward":       rodGoForward,
	"reload":          rodReload,
}

// RodPage adapts a *rod.Page to the driver.Page interface.
type RodPage struct {
	page      *rod.Page
	hijack    *rod.HijackRouter
	popupOnce []func(Page)
	closed    bool
}

// NewRodPage wraps an existing rod.Page. hijack, if non-nil, is the
// request-blocking router installed for this page and is stopped when the
// page closes.
func NewRodPage(page *rod.Page, hijack *rod.HijackRouter) *RodPage {
	return &RodPage{page: page, hijack: hijack}
}

func (p *RodPage) bound(ctx context.Context) *rod.Page {
	return p.page.Context(ctx)
}

func (p *RodPage) Navigate(ctx context.Context, url string) error {
	if err := p.bound(ctx).Navigate(url); err != nil {
		return fmt.Errorf("navigate %q: %w", url, err)
	}
	return nil
}

func (p *RodPage) CurrentURL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *RodPage) HTML(ctx context.Context) (string, error) {
	html, err := p.bound(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("extract html: %w", err)
	}
	return html, nil
}

func (p *RodPage) Cookies(ctx context.Context) (map[string]string, error) {
	res, err := proto.NetworkGetCookies{}.Call(p.bound(ctx))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	out := make(map[string]string, len(res.Cookies))
	for _, c := range res.Cookies {
		out[c.Name] = c.Value
	}
	return out, nil
}

func (p *RodPage) WaitAttached(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	err := p.bound(waitCtx).WaitElementsMoreThan(selector, 0)
	if err != nil {
		if p.IsClosed() {
			return false, fmt.Errorf("page gone while waiting for %q: %w", selector, err)
		}
		// Timeout or "not found" — selector simply isn't attached yet.
		return false, nil
	}
	return true, nil
}

func (p *RodPage) Eval(ctx context.Context, js string, args ...any) (gson.JSON, error) {
	res, err := p.bound(ctx).Eval(js, args...)
	if err != nil {
		return gson.JSON{}, fmt.Errorf("eval: %w", err)
	}
	return res.Value, nil
}

func (p *RodPage) Click(ctx context.Context, selector string, force bool) error {
	bp := p.bound(ctx)
	el, err := bp.Element(selector)
	if err != nil {
		return fmt.Errorf("click: element %q not found: %w", selector, err)
	}
	if force {
		_, err := el.Eval(`() => this.click()`)
		return err
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (p *RodPage) Type(ctx context.Context, selector, text string) error {
	bp := p.bound(ctx)
	el, err := bp.Element(selector)
	if err != nil {
		return fmt.Errorf("type: element %q not found: %w", selector, err)
	}
	return el.Input(text)
}

func (p *RodPage) Press(ctx context.Context, selector, key string) error {
	bp := p.bound(ctx)
	el, err := bp.Element(selector)
	if err != nil {
		return fmt.Errorf("press: element %q not found: %w", selector, err)
	}
	if err := el.Focus(); err != nil {
		return err
	}
	k, ok := rodKey(key)
	if !ok {
		return fmt.Errorf("press: unknown key %q", key)
	}
	return bp.Keyboard.Type(k)
}

func (p *RodPage) Scroll(ctx context.Context, dx, dy float64) error {
	return p.bound(ctx).Mouse.Scroll(dx, dy, 0)
}

func (p *RodPage) ViewportHeight(ctx context.Context) (int, error) {
	res, err := p.bound(ctx).Eval(`() => window.innerHeight`)
	if err != nil {
		return 0, fmt.Errorf("viewport height: %w", err)
	}
	return res.Value.Int(), nil
}

func (p *RodPage) Screenshot(ctx context.Context) ([]byte, error) {
	return p.bound(ctx).Screenshot(false, nil)
}

func (p *RodPage) WaitLoadState(ctx context.Context, state string) error {
	bp := p.bound(ctx)
	switch state {
	case "domcontentloaded":
		return bp.WaitDOMStable(300*time.Millisecond, 0.1)
	case "networkidle":
		wait := bp.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)
		wait()
		return nil
	default:
		return bp.WaitLoad()
	}
}

func (p *RodPage) History(ctx context.Context, direction string) error {
	js := `() => history.back()`
	if direction == "forward" {
		js = `() => history.forward()`
	}
	_, err := p.bound(ctx).Eval(js)
	return err
}

func (p *RodPage) Close(ctx context.Context) error {
	if p.closed {
		return nil
	}
	p.closed = true
	if p.hijack != nil {
		_ = p.hijack.Stop()
	}
	return p.page.Close()
}

func (p *RodPage) IsClosed() bool {
	if p.closed {
		return true
	}
	_, err := p.page.Info()
	return err != nil
}

func (p *RodPage) OnPopup(handler func(Page)) (cancel func()) {
	b := p.page.Browser()
	ctx, cancelCtx := context.WithCancel(context.Background())
	go b.Context(ctx).EachEvent(func(e *proto.TargetTargetCreated) {
		if e.TargetInfo.Type != proto.TargetTargetInfoTypePage {
			return
		}
		if e.TargetInfo.OpenerID != p.page.TargetID {
			return
		}
		popup, err := b.PageFromTarget(e.TargetInfo.TargetID)
		if err != nil {
			return
		}
		handler(NewRodPage(popup, nil))
	})()
	return cancelCtx
}

// NewPage opens a sibling page in the same browser context, giving the
// interpreter's enqueueLinks job a page to navigate without relaunching the
// browser. It satisfies the interpreter package's pageOpener capability.
func (p *RodPage) NewPage(ctx context.Context) (Page, error) {
	page, err := p.page.Browser().Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open sibling page: %w", err)
	}
	return NewRodPage(page, nil), nil
}

func (p *RodPage) InjectScript(ctx context.Context, js string) error {
	_, err := p.page.Context(ctx).EvalOnNewDocument(js)
	return err
}

func (p *RodPage) Call(ctx context.Context, method string, args []any) (any, error) {
	fn, ok := rodAllowedMethods[method]
	if !ok {
		return nil, fmt.Errorf("driver: method %q is not in the allowed dispatch table", method)
	}
	return fn(ctx, p, args)
}

// --- fixed dispatch table entries -----------------------------------------

func rodType(ctx context.Context, p *RodPage, args []any) (any, error) {
	sel, val := twoStringArgs(args)
	return nil, p.Type(ctx, sel, val)
}

func rodPress(ctx context.Context, p *RodPage, args []any) (any, error) {
	sel, val := twoStringArgs(args)
	return nil, p.Press(ctx, sel, val)
}

func rodHover(ctx context.Context, p *RodPage, args []any) (any, error) {
	sel, _ := twoStringArgs(args)
	el, err := p.bound(ctx).Element(sel)
	if err != nil {
		return nil, err
	}
	return nil, el.Hover()
}

func rodFocus(ctx context.Context, p *RodPage, args []any) (any, error) {
	sel, _ := twoStringArgs(args)
	el, err := p.bound(ctx).Element(sel)
	if err != nil {
		return nil, err
	}
	return nil, el.Focus()
}

func rodSelectOption(ctx context.Context, p *RodPage, args []any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("selectOption requires (selector, value)")
	}
	sel, _ := args[0].(string)
	val, _ := args[1].(string)
	el, err := p.bound(ctx).Element(sel)
	if err != nil {
		return nil, err
	}
	return nil, el.Select([]string{val}, true, rod.SelectorTypeText)
}

func rodWaitForSelector(ctx context.Context, p *RodPage, args []any) (any, error) {
	sel, _ := twoStringArgs(args)
	_, err := p.WaitAttached(ctx, sel, 10*time.Second)
	return nil, err
}

func rodGoBack(ctx context.Context, p *RodPage, _ []any) (any, error) {
	return nil, p.History(ctx, "back")
}

func rodGoForward(ctx context.Context, p *RodPage, _ []any) (any, error) {
	return nil, p.History(ctx, "forward")
}

func rodReload(ctx context.Context, p *RodPage, _ []any) (any, error) {
	return nil, p.bound(ctx).Reload()
}

func twoStringArgs(args []any) (string, string) {
	var a, b string
	if len(args) > 0 {
		a, _ = args[0].(string)
	}
	if len(args) > 1 {
		b, _ = args[1].(string)
	}
	return a, b
}

func rodKey(name string) (input.Key, bool) {
	if k, ok := keyByName[name]; ok {
		return k, true
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return input.Key(runes[0]), true
	}
	return 0, false
}
