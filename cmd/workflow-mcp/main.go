// Command workflow-mcp exposes the interpreter as a single MCP tool,
// run_workflow, so an LLM agent can drive a declarative scraping workflow
// directly rather than through the HTTP demo host. It calls the interpreter
// in-process instead of proxying HTTP requests to a separate API server,
// since this MCP host owns its own browser.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/scrapeflow/config"
	"github.com/use-agent/scrapeflow/driver"
	"github.com/use-agent/scrapeflow/interpreter"
)

func main() {
	cfg := config.Load()

	browser, err := driver.Launch(driver.BrowserConfig{
		Headless:   cfg.Browser.Headless,
		NoSandbox:  cfg.Browser.NoSandbox,
		BrowserBin: cfg.Browser.BrowserBin,
		Proxy:      cfg.Browser.Proxy,
	}, cfg.Browser.AdBlockJS, cfg.Browser.BlockedResourceTypes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "launch browser: %v\n", err)
		os.Exit(1)
	}
	defer browser.Close()

	s := server.NewMCPServer(
		"scrapeflow",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	runWorkflowTool := mcp.NewTool("run_workflow",
		mcp.WithDescription("Run a declarative scraping workflow (a JSON document of where/what pairs) against a starting URL in a live browser, and return every record the workflow emitted."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL to open before running the workflow"),
		),
		mcp.WithString("workflow",
			mcp.Required(),
			mcp.Description("The workflow document as a JSON string: {\"pairs\": [{\"where\": ..., \"what\": [...]}]}"),
		),
		mcp.WithString("params",
			mcp.Description("JSON object of $param substitutions available to the workflow"),
		),
	)
	s.AddTool(runWorkflowTool, handleRunWorkflow(browser, cfg))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleRunWorkflow(browser *driver.Browser, cfg *config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		workflowStr, err := request.RequireString("workflow")
		if err != nil {
			return mcp.NewToolResultError("workflow is required"), nil
		}

		var wf interpreter.Workflow
		if err := json.Unmarshal([]byte(workflowStr), &wf); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("workflow is not valid JSON: %v", err)), nil
		}

		var params map[string]any
		if paramsStr := request.GetString("params", ""); paramsStr != "" {
			if err := json.Unmarshal([]byte(paramsStr), &params); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("params is not valid JSON: %v", err)), nil
			}
		}

		// Callbacks can fire from concurrent pages (popups, enqueued links).
		var mu sync.Mutex
		var records []any
		in, err := interpreter.New(&wf, interpreter.Options{
			MaxRepeats:     cfg.Interp.MaxRepeats,
			MaxConcurrency: cfg.Interp.MaxConcurrency,
			AdBlockJS:      cfg.Browser.AdBlockJS,
			SerializableCallback: func(data any) {
				mu.Lock()
				records = append(records, data)
				mu.Unlock()
			},
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid workflow: %v", err)), nil
		}

		page, err := browser.NewPage()
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("open page: %v", err)), nil
		}
		defer page.Close(ctx)

		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()

		if err := page.Navigate(runCtx, url); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("navigate: %v", err)), nil
		}
		if err := in.Run(runCtx, page, params); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run failed: %v", err)), nil
		}

		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode records: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}
