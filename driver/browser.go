package driver

import (
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// BrowserConfig controls the launched Chromium instance.
type BrowserConfig struct {
	Headless   bool
	NoSandbox  bool
	BrowserBin string
	Proxy      string
}

// Browser wraps a launched rod.Browser and the ad-block/stealth script
// installed on every page it creates: a best-effort installation whose
// failure is logged, not fatal.
type Browser struct {
	rodBrowser   *rod.Browser
	adBlockJS    string
	blockedTypes []string
}

// Launch starts a headless Chromium instance with stealth launch flags and
// connects a rod.Browser to it. adBlockJS is injected on every new document
// of every page this Browser creates; pass "" to skip ad-block injection
// entirely. blockedTypes additionally fails network requests for the named
// resource types (see blockableResourceTypes) at the protocol level via
// HijackRequests.
func Launch(cfg BrowserConfig, adBlockJS string, blockedTypes []string) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	rb := rod.New().ControlURL(controlURL)
	if err := rb.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	return &Browser{rodBrowser: rb, adBlockJS: adBlockJS, blockedTypes: blockedTypes}, nil
}

// NewPage opens a fresh tab, installs stealth and ad-block scripts
// (idempotent: EvalOnNewDocument runs once per navigation, and is safe to
// install repeatedly on a page that is reused), installs the protocol-level
// resource-hijack ad-block, and returns it wrapped as a driver.Page.
func (b *Browser) NewPage() (Page, error) {
	page, err := b.rodBrowser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if _, err := page.EvalOnNewDocument(stealth.JS); err != nil {
		slog.Warn("stealth injection failed, proceeding without it", "error", err)
	}
	if b.adBlockJS != "" {
		if _, err := page.EvalOnNewDocument(b.adBlockJS); err != nil {
			slog.Warn("ad-block injection failed, proceeding without it", "error", err)
		}
	}
	hijack := installAdBlock(page, b.blockedTypes)

	return NewRodPage(page, hijack), nil
}

// Close kills the underlying browser process.
func (b *Browser) Close() error {
	return b.rodBrowser.Close()
}
