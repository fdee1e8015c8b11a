package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/products"
	"github.com/svennapp/svennProductsFE/internal/schedule"
	"github.com/svennapp/svennProductsFE/internal/session"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

// maxRunWait bounds run_script calls with wait=true.
const maxRunWait = 5 * time.Minute

type toolset struct {
	manager *workspace.Manager
	search  products.Client
	logger  zerolog.Logger
}

type toolDef struct {
	name        string
	description string
	readOnly    bool
	idempotent  bool
	params      []mcp.ToolOption
	handler     server.ToolHandlerFunc
}

func buildTools(cfg *Config, ts *toolset) []server.ServerTool {
	scriptID := mcp.WithNumber("script_id", mcp.Required(), mcp.Description("Script ID"))

	defs := []toolDef{
		{
			name:        "list_warehouses",
			description: "List the warehouses scripts are grouped by.",
			readOnly:    true,
			idempotent:  true,
			handler:     ts.listWarehouses,
		},
		{
			name:        "select_warehouse",
			description: "Select the warehouse whose scripts are listed. 0 clears the selection.",
			idempotent:  true,
			params: []mcp.ToolOption{
				mcp.WithNumber("warehouse_id", mcp.Required(), mcp.Description("Warehouse ID")),
			},
			handler: ts.selectWarehouse,
		},
		{
			name:        "list_scripts",
			description: "List the scripts of the selected warehouse with their schedule and run state.",
			readOnly:    true,
			idempotent:  true,
			handler:     ts.listScripts,
		},
		{
			name:        "run_script",
			description: "Run a script now and follow its execution.",
			params: []mcp.ToolOption{
				scriptID,
				mcp.WithBoolean("wait", mcp.Description("Wait until the execution finishes")),
			},
			handler: ts.runScript,
		},
		{
			name:        "script_status",
			description: "Get the tracking state of a script's latest run.",
			readOnly:    true,
			idempotent:  true,
			params:      []mcp.ToolOption{scriptID},
			handler:     ts.scriptStatus,
		},
		{
			name:        "script_logs",
			description: "Read the log lines of a script's most recent execution.",
			readOnly:    true,
			idempotent:  true,
			params: []mcp.ToolOption{
				scriptID,
				mcp.WithString("level",
					mcp.Description("Log level filter"),
					mcp.Enum(string(gateway.LogLevelAll), string(gateway.LogLevelInfo), string(gateway.LogLevelWarning), string(gateway.LogLevelError)),
				),
			},
			handler: ts.scriptLogs,
		},
		{
			name:        "list_jobs",
			description: "List scheduled jobs.",
			readOnly:    true,
			idempotent:  true,
			handler:     ts.listJobs,
		},
		{
			name:        "toggle_job",
			description: "Enable or disable a scheduled job.",
			params: []mcp.ToolOption{
				mcp.WithString("job_id", mcp.Required(), mcp.Description("Job ID, e.g. script_7")),
			},
			handler: ts.toggleJob,
		},
		{
			name:        "validate_schedule",
			description: "Check a cron expression or preset key and preview its next runs.",
			readOnly:    true,
			idempotent:  true,
			params: []mcp.ToolOption{
				mcp.WithString("expression", mcp.Required(), mcp.Description("Five-field cron expression or preset key")),
			},
			handler: ts.validateSchedule,
		},
		{
			name:        "set_schedule",
			description: "Create or update the scheduled job of a script.",
			idempotent:  true,
			params: []mcp.ToolOption{
				scriptID,
				mcp.WithString("schedule", mcp.Required(), mcp.Description("Five-field cron expression or preset key")),
			},
			handler: ts.setSchedule,
		},
		{
			name:        "search_products",
			description: "Search scraped products by name or code.",
			readOnly:    true,
			idempotent:  true,
			params: []mcp.ToolOption{
				mcp.WithString("query", mcp.Required(), mcp.Description("Search term, at least 2 characters")),
				mcp.WithNumber("limit", mcp.Description("Maximum results")),
				mcp.WithNumber("offset", mcp.Description("Results to skip")),
			},
			handler: ts.searchProducts,
		},
	}

	var tools []server.ServerTool
	for _, d := range defs {
		if cfg.disabled(d.name) {
			continue
		}
		override, hasOverride := cfg.Overrides[d.name]

		desc := d.description
		if hasOverride && override.Description != "" {
			desc = override.Description
		}

		opts := []mcp.ToolOption{mcp.WithDescription(desc)}
		opts = append(opts, buildAnnotations(d, override, hasOverride)...)
		opts = append(opts, d.params...)

		tools = append(tools, server.ServerTool{
			Tool:    mcp.NewTool(d.name, opts...),
			Handler: d.handler,
		})
	}
	return tools
}

// buildAnnotations creates MCP annotation options from the tool's defaults
// and config overrides.
func buildAnnotations(d toolDef, override ToolOverride, hasOverride bool) []mcp.ToolOption {
	readOnly := d.readOnly
	destructive := false
	idempotent := d.idempotent

	if hasOverride {
		if override.ReadOnly != nil {
			readOnly = *override.ReadOnly
		}
		if override.Destructive != nil {
			destructive = *override.Destructive
		}
		if override.Idempotent != nil {
			idempotent = *override.Idempotent
		}
	}

	return []mcp.ToolOption{
		mcp.WithReadOnlyHintAnnotation(readOnly),
		mcp.WithDestructiveHintAnnotation(destructive),
		mcp.WithIdempotentHintAnnotation(idempotent),
	}
}

func (ts *toolset) workspace(ctx context.Context) (*workspace.Workspace, error) {
	id, err := session.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return ts.manager.Get(ctx, id.Subject)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %s", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error, fallback string) *mcp.CallToolResult {
	return mcp.NewToolResultError(gateway.Message(err, fallback))
}

func (ts *toolset) listWarehouses(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	warehouses, err := ws.Directory.Warehouses(ctx)
	if err != nil {
		return errorResult(err, "Failed to load warehouses"), nil
	}
	return jsonResult(warehouses)
}

func (ts *toolset) selectWarehouse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("warehouse_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ws.SelectWarehouse(ctx, id); err != nil {
		return errorResult(err, "Failed to load scripts"), nil
	}
	return jsonResult(ws.Scripts())
}

func (ts *toolset) listScripts(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if ws.Directory.WarehouseID() == 0 {
		return mcp.NewToolResultError("no warehouse selected; call select_warehouse first"), nil
	}
	return jsonResult(ws.Scripts())
}

func (ts *toolset) runScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("script_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	err = ws.Tracker.Run(ctx, id)
	switch {
	case errors.Is(err, tracker.ErrAlreadyRunning):
		return mcp.NewToolResultError(fmt.Sprintf("script %d is already running", id)), nil
	case errors.Is(err, tracker.ErrNoExecutionID):
		return mcp.NewToolResultError("No execution ID provided"), nil
	case err != nil:
		return errorResult(err, "Failed to run script"), nil
	}

	ts.logger.Info().Int("script_id", id).Msg("script run via MCP")

	if req.GetBool("wait", false) {
		waitCtx, cancel := context.WithTimeout(ctx, maxRunWait)
		defer cancel()
		st, _ := ws.Tracker.Wait(waitCtx, id)
		return jsonResult(st)
	}
	return jsonResult(ws.Tracker.State(id))
}

func (ts *toolset) scriptStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("script_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ws.Tracker.State(id))
}

func (ts *toolset) scriptLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("script_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	level, err := gateway.ParseLogLevel(req.GetString("level", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	logs, err := ws.Tracker.Logs(ctx, id, level)
	if errors.Is(err, tracker.ErrNoRecentExecution) {
		return mcp.NewToolResultError("No recent execution found"), nil
	}
	if err != nil {
		return errorResult(err, "Failed to fetch logs"), nil
	}
	return jsonResult(logs)
}

func (ts *toolset) listJobs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ws.Registry.Refresh(ctx); err != nil {
		return errorResult(err, "Failed to load jobs"), nil
	}
	return jsonResult(ws.Registry.Jobs())
}

func (ts *toolset) toggleJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID, err := req.RequireString("job_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := ws.Registry.Toggle(ctx, jobID); err != nil {
		return errorResult(err, "Failed to toggle job"), nil
	}
	job, ok := ws.Registry.Lookup(jobID)
	if !ok {
		return mcp.NewToolResultText(fmt.Sprintf(`{"job_id":%q}`, jobID)), nil
	}
	return jsonResult(job)
}

func (ts *toolset) validateSchedule(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	expr := schedule.Resolve(req.GetString("expression", ""))
	runs, err := schedule.NextRuns(expr, time.Now().UTC(), 5)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"expression": expr,
		"valid":      true,
		"next_runs":  runs,
	})
}

func (ts *toolset) setSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("script_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws, err := ts.workspace(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	job, err := ws.SaveSchedule(ctx, id, req.GetString("schedule", ""))
	if err != nil {
		var verr *schedule.ValidationError
		if errors.As(err, &verr) {
			return mcp.NewToolResultError(verr.Message), nil
		}
		return errorResult(err, "Failed to update schedule"), nil
	}
	return jsonResult(job)
}

func (ts *toolset) searchProducts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp, err := products.Search(ctx, ts.search, gateway.ProductSearchParams{
		Query:  req.GetString("query", ""),
		Limit:  req.GetInt("limit", 0),
		Offset: req.GetInt("offset", 0),
	})
	if errors.Is(err, products.ErrQueryTooShort) {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err != nil {
		return errorResult(err, "Failed to search products"), nil
	}
	return jsonResult(resp)
}
