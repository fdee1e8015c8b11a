package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ListWarehouses returns all warehouses.
func (c *Client) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	return Get[[]Warehouse](ctx, c, "/api/warehouses")
}

// ListWarehouseScripts returns the scripts registered for a warehouse.
func (c *Client) ListWarehouseScripts(ctx context.Context, warehouseID int) ([]Script, error) {
	return Get[[]Script](ctx, c, fmt.Sprintf("/api/warehouses/%d/scripts", warehouseID))
}

// ListJobs returns jobs; scheduledOnly restricts the list to recurring jobs.
func (c *Client) ListJobs(ctx context.Context, scheduledOnly bool) ([]Job, error) {
	path := "/api/jobs"
	if scheduledOnly {
		path += "?scheduled_only=true"
	}
	return Get[[]Job](ctx, c, path)
}

type createJobRequest struct {
	ScriptID       int    `json:"script_id"`
	CronExpression string `json:"cron_expression"`
}

type updateJobRequest struct {
	CronExpression string `json:"cron_expression"`
}

// CreateJob schedules a script on a cron expression.
func (c *Client) CreateJob(ctx context.Context, scriptID int, cronExpression string) (*Job, error) {
	job, err := Post[Job](ctx, c, "/api/jobs", createJobRequest{
		ScriptID:       scriptID,
		CronExpression: cronExpression,
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob changes the cron expression of an existing job.
func (c *Client) UpdateJob(ctx context.Context, jobID, cronExpression string) (*Job, error) {
	job, err := Put[Job](ctx, c, "/api/jobs/"+url.PathEscape(jobID), updateJobRequest{
		CronExpression: cronExpression,
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// ToggleJob flips a job's enabled flag on the backend.
func (c *Client) ToggleJob(ctx context.Context, jobID string) error {
	_, err := c.Do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/toggle", nil)
	return err
}

// RunScript triggers an immediate run of a script.
func (c *Client) RunScript(ctx context.Context, scriptID int) (*RunScriptResponse, error) {
	resp, err := Post[RunScriptResponse](ctx, c, fmt.Sprintf("/api/run_now/%d", scriptID), nil)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ExecutionStatus fetches the current status of an execution.
func (c *Client) ExecutionStatus(ctx context.Context, executionID int) (*ExecutionStatus, error) {
	st, err := Get[ExecutionStatus](ctx, c, fmt.Sprintf("/api/jobs/execution/%d/status", executionID))
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ScriptLogs returns the most recent executions of a script, newest first.
// Negative skip or limit leaves the parameter out.
func (c *Client) ScriptLogs(ctx context.Context, scriptID, skip, limit int) ([]Execution, error) {
	q := url.Values{}
	if skip >= 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit >= 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := fmt.Sprintf("/api/jobs/scripts/%d/logs", scriptID)
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	return Get[[]Execution](ctx, c, path)
}

// ExecutionLogs returns the log lines of an execution, optionally filtered
// by level.
func (c *Client) ExecutionLogs(ctx context.Context, executionID int, level LogLevel) ([]LogEntry, error) {
	path := fmt.Sprintf("/api/jobs/executions/%d/logs", executionID)
	if level != "" && level != LogLevelAll {
		path += "?" + url.Values{"level": {string(level)}}.Encode()
	}
	return Get[[]LogEntry](ctx, c, path)
}

// SearchProducts runs a product search. Zero-valued params are omitted.
func (c *Client) SearchProducts(ctx context.Context, p ProductSearchParams) (*ProductSearchResponse, error) {
	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Offset > 0 {
		q.Set("offset", strconv.Itoa(p.Offset))
	}
	if p.SortBy != "" {
		q.Set("sort_by", string(p.SortBy))
	}
	if p.SortOrder != "" {
		q.Set("sort_order", string(p.SortOrder))
	}
	path := "/api/products/search"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	resp, err := Get[ProductSearchResponse](ctx, c, path)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProductInfo looks up a product and its retailer prices by NOBB or EAN code.
func (c *Client) ProductInfo(ctx context.Context, identifierType IdentifierType, code string) (*ProductInfo, error) {
	q := url.Values{
		"identifier_type": {string(identifierType)},
		"code":            {code},
	}
	info, err := Get[ProductInfo](ctx, c, "/api/products/product-info?"+q.Encode())
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// BasicStats returns the backend's product statistics.
func (c *Client) BasicStats(ctx context.Context) (BasicStats, error) {
	return Get[BasicStats](ctx, c, "/api/products/stats/basic")
}

// LatestProducts returns the most recently updated products.
func (c *Client) LatestProducts(ctx context.Context, skip, limit int) ([]ProductSummary, error) {
	q := url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	}
	return Get[[]ProductSummary](ctx, c, "/api/products/latest?"+q.Encode())
}

// ProductsByCategory returns products in a category.
func (c *Client) ProductsByCategory(ctx context.Context, categoryID string, skip, limit int) ([]ProductSummary, error) {
	q := url.Values{
		"skip":  {strconv.Itoa(skip)},
		"limit": {strconv.Itoa(limit)},
	}
	return Get[[]ProductSummary](ctx, c, "/api/products/category/"+url.PathEscape(categoryID)+"?"+q.Encode())
}
