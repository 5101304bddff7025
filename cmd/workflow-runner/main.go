// Command workflow-runner is a CLI demo host: it loads a workflow JSON file,
// launches a browser, runs the workflow against a starting URL, and prints
// every emitted record as JSON to stdout — a one-shot run instead of a
// long-lived server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/use-agent/scrapeflow/config"
	"github.com/use-agent/scrapeflow/driver"
	"github.com/use-agent/scrapeflow/interpreter"
)

func main() {
	workflowPath := flag.String("workflow", "", "path to a workflow JSON file")
	startURL := flag.String("url", "", "URL to open before running the workflow")
	paramsJSON := flag.String("params", "{}", "JSON object of $param substitutions")
	flag.Parse()

	if *workflowPath == "" || *startURL == "" {
		fmt.Fprintln(os.Stderr, "usage: workflow-runner -workflow=<file> -url=<start url> [-params='{}']")
		os.Exit(2)
	}

	cfg := config.Load()

	raw, err := os.ReadFile(*workflowPath)
	if err != nil {
		slog.Error("read workflow file", "error", err)
		os.Exit(1)
	}
	var wf interpreter.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		slog.Error("decode workflow", "error", err)
		os.Exit(1)
	}

	var params map[string]any
	if err := json.Unmarshal([]byte(*paramsJSON), &params); err != nil {
		slog.Error("decode params", "error", err)
		os.Exit(1)
	}

	browser, err := driver.Launch(driver.BrowserConfig{
		Headless:   cfg.Browser.Headless,
		NoSandbox:  cfg.Browser.NoSandbox,
		BrowserBin: cfg.Browser.BrowserBin,
		Proxy:      cfg.Browser.Proxy,
	}, cfg.Browser.AdBlockJS, cfg.Browser.BlockedResourceTypes)
	if err != nil {
		slog.Error("launch browser", "error", err)
		os.Exit(1)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		slog.Error("open page", "error", err)
		os.Exit(1)
	}
	defer page.Close(context.Background())

	// Callbacks can fire from concurrent pages (popups, enqueued links);
	// stdout is one shared stream.
	var mu sync.Mutex
	enc := json.NewEncoder(os.Stdout)
	emit := func(v map[string]any) {
		mu.Lock()
		_ = enc.Encode(v)
		mu.Unlock()
	}
	in, err := interpreter.New(&wf, interpreter.Options{
		MaxRepeats:     cfg.Interp.MaxRepeats,
		MaxConcurrency: cfg.Interp.MaxConcurrency,
		AdBlockJS:      cfg.Browser.AdBlockJS,
		Debug:          cfg.Interp.Debug,
		SerializableCallback: func(data any) {
			emit(map[string]any{"type": "record", "data": data})
		},
		BinaryCallback: func(data []byte, mimeType string) {
			emit(map[string]any{"type": "binary", "mimeType": mimeType, "sizeBytes": len(data)})
		},
		ActiveIDCallback: func(id string) {
			emit(map[string]any{"type": "activeId", "id": id})
		},
		DebugMessageCallback: func(text string) {
			slog.Debug(text)
		},
	})
	if err != nil {
		slog.Error("construct interpreter", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := page.Navigate(ctx, *startURL); err != nil {
		slog.Error("navigate", "error", err)
		os.Exit(1)
	}

	if err := in.Run(ctx, page, params); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}
