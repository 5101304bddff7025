package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/scrapeflow/cache"
	"github.com/use-agent/scrapeflow/config"
	"github.com/use-agent/scrapeflow/driver"
	"github.com/use-agent/scrapeflow/interpreter"
	"github.com/use-agent/scrapeflow/models"
	"github.com/use-agent/scrapeflow/webhook"
)

// Run returns a handler for POST /api/v1/run. It streams every interpreter
// event back as a Server-Sent Event: one event per callback, a final "done"
// or "error" event, then the connection closes.
func Run(browser *driver.Browser, wfCache *cache.Cache, cfg *config.Config, activeRuns *atomic.Int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.RunRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		wf, err := parseWorkflow(wfCache, req.Workflow)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")

		activeRuns.Add(1)
		defer activeRuns.Add(-1)

		// Callbacks can fire from concurrent pages (popups, enqueued
		// links); the SSE writer is a single shared stream.
		var sseMu sync.Mutex
		emit := func(event string, data any) {
			sseMu.Lock()
			defer sseMu.Unlock()
			writeSSE(c, event, data)
		}

		opts := interpreter.Options{
			MaxRepeats:     cfg.Interp.MaxRepeats,
			MaxConcurrency: cfg.Interp.MaxConcurrency,
			AdBlockJS:      cfg.Browser.AdBlockJS,
			Debug:          cfg.Interp.Debug,
		}
		if cfg.Webhook.URL != "" {
			webhook.Attach(&opts, cfg.Webhook.URL, cfg.Webhook.Secret, c.GetHeader("X-Job-ID"))
		}
		opts.SerializableCallback = chainSerializable(opts.SerializableCallback, func(data any) {
			emit("record", data)
		})
		opts.BinaryCallback = chainBinary(opts.BinaryCallback, func(data []byte, mimeType string) {
			emit("binary", gin.H{"mimeType": mimeType, "sizeBytes": len(data)})
		})
		opts.ActiveIDCallback = chainActiveID(opts.ActiveIDCallback, func(id string) {
			emit("activeId", id)
		})
		opts.DebugMessageCallback = chainDebug(opts.DebugMessageCallback, func(text string) {
			emit("debug", text)
		})

		in, err := interpreter.New(wf, opts)
		if err != nil {
			emit("error", err.Error())
			return
		}

		page, err := browser.NewPage()
		if err != nil {
			emit("error", fmt.Sprintf("open page: %v", err))
			return
		}
		defer page.Close(c.Request.Context())

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Interp.ActionTimeout*50)
		defer cancel()

		if err := page.Navigate(ctx, req.URL); err != nil {
			emit("error", fmt.Sprintf("navigate: %v", err))
			return
		}

		if err := in.Run(ctx, page, req.Params); err != nil {
			emit("error", err.Error())
			return
		}
		emit("done", nil)
	}
}

// parseWorkflow decodes and validates raw, consulting wfCache so a
// repeatedly-submitted identical workflow body skips decoding and this
// validation pass (interpreter.New still validates it on every request).
func parseWorkflow(wfCache *cache.Cache, raw json.RawMessage) (*interpreter.Workflow, error) {
	key := cache.Key(raw)
	if cached, ok := wfCache.Get(key, 10*time.Minute); ok {
		wf := cached.(*interpreter.Workflow)
		return wf, nil
	}

	var wf interpreter.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return nil, fmt.Errorf("decode workflow: %w", err)
	}
	if err := interpreter.Validate(&wf); err != nil {
		return nil, err
	}
	wfCache.Set(key, &wf)
	return &wf, nil
}

// writeSSE writes one Server-Sent Event and flushes immediately so the
// client sees it without waiting for the response to close.
func writeSSE(c *gin.Context, event string, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		body = []byte(fmt.Sprintf("%q", err.Error()))
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, body)
	c.Writer.Flush()
}

func chainSerializable(prev func(any), next func(any)) func(any) {
	return func(data any) {
		if prev != nil {
			prev(data)
		}
		next(data)
	}
}

func chainBinary(prev func([]byte, string), next func([]byte, string)) func([]byte, string) {
	return func(data []byte, mimeType string) {
		if prev != nil {
			prev(data, mimeType)
		}
		next(data, mimeType)
	}
}

func chainActiveID(prev func(string), next func(string)) func(string) {
	return func(id string) {
		if prev != nil {
			prev(id)
		}
		next(id)
	}
}

func chainDebug(prev func(string), next func(string)) func(string) {
	return func(text string) {
		if prev != nil {
			prev(text)
		}
		next(text)
	}
}
