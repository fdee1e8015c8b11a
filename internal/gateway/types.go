package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

type Warehouse struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type ScriptType string

const (
	ScriptTypeSpider    ScriptType = "spider"
	ScriptTypeProcessor ScriptType = "processor"
)

// Script is owned by the backend; the dashboard only mirrors the last
// execution of a just-finished run.
type Script struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	Type              ScriptType `json:"type"`
	WarehouseID       int        `json:"warehouse_id"`
	Filename          string     `json:"filename,omitempty"`
	LastExecutionTime *Timestamp `json:"last_execution_time,omitempty"`
	LastExecution     *Execution `json:"last_execution,omitempty"`
}

// Job binds a script to a cron schedule.
type Job struct {
	ID             int        `json:"id"`
	JobID          string     `json:"job_id"`
	ScriptID       int        `json:"script_id"`
	CronExpression string     `json:"cron_expression"`
	Enabled        bool       `json:"enabled"`
	CreatedAt      *Timestamp `json:"created_at,omitempty"`
}

type ExecutionState string

const (
	ExecutionPending   ExecutionState = "pending"
	ExecutionRunning   ExecutionState = "running"
	ExecutionCompleted ExecutionState = "completed"
	ExecutionFailed    ExecutionState = "failed"
)

// InFlight reports whether the backend still considers the run active.
func (s ExecutionState) InFlight() bool {
	return s == ExecutionPending || s == ExecutionRunning
}

// Execution is one run of a script.
type Execution struct {
	ExecutionID int            `json:"execution_id"`
	ScriptID    int            `json:"script_id"`
	Timestamp   *Timestamp     `json:"timestamp,omitempty"`
	Status      ExecutionState `json:"status"`
	Error       string         `json:"error,omitempty"`
}

// ExecutionStatus is the poll response for a running execution.
type ExecutionStatus struct {
	ExecutionID  int            `json:"execution_id"`
	Status       ExecutionState `json:"status"`
	StartTime    *Timestamp     `json:"start_time,omitempty"`
	EndTime      *Timestamp     `json:"end_time,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
}

// RunScriptResponse is returned when a run is triggered.
type RunScriptResponse struct {
	Message     string          `json:"message"`
	JobID       json.RawMessage `json:"job_id,omitempty"`
	ExecutionID int             `json:"execution_id"`
	Status      ExecutionState  `json:"status,omitempty"`
	Error       string          `json:"error,omitempty"`
}

type LogLevel string

const (
	LogLevelAll     LogLevel = "all"
	LogLevelInfo    LogLevel = "info"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// ParseLogLevel accepts "", "all", "info", "warning" and "error".
func ParseLogLevel(s string) (LogLevel, error) {
	switch LogLevel(s) {
	case "", LogLevelAll:
		return LogLevelAll, nil
	case LogLevelInfo, LogLevelWarning, LogLevelError:
		return LogLevel(s), nil
	}
	return "", fmt.Errorf("invalid log level %q", s)
}

type LogEntry struct {
	ID        int        `json:"id"`
	Level     LogLevel   `json:"level"`
	Message   string     `json:"message"`
	Timestamp *Timestamp `json:"timestamp,omitempty"`
}

// Product search

type ProductImage struct {
	ImageID  int    `json:"image_id"`
	ImageURL string `json:"image_url"`
}

type ProductSummary struct {
	ProductID               int            `json:"product_id"`
	BaseName                string         `json:"base_name"`
	BaseUnit                *string        `json:"base_unit"`
	NOBBCode                *string        `json:"nobb_code"`
	EANCode                 *string        `json:"ean_code"`
	Images                  []ProductImage `json:"images"`
	RetailerCount           int            `json:"retailer_count"`
	MedianPriceAllRetailers *float64       `json:"median_price_all_retailers,omitempty"`
	Updated                 *Timestamp     `json:"updated,omitempty"`
}

type ProductSearchResponse struct {
	Items   []ProductSummary `json:"items"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"has_more"`
}

type SortField string

const (
	SortByName          SortField = "name"
	SortByPrice         SortField = "price"
	SortByRetailerCount SortField = "retailer_count"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type ProductSearchParams struct {
	Query     string
	Limit     int
	Offset    int
	SortBy    SortField
	SortOrder SortOrder
}

type IdentifierType string

const (
	IdentifierNOBB IdentifierType = "nobb"
	IdentifierEAN  IdentifierType = "ean"
)

type BaseProduct struct {
	ProductID     int            `json:"product_id"`
	BaseName      string         `json:"base_name"`
	BaseUnit      string         `json:"base_unit"`
	BasePriceUnit string         `json:"base_price_unit"`
	NOBBCode      string         `json:"nobb_code"`
	Created       *Timestamp     `json:"created,omitempty"`
	Updated       *Timestamp     `json:"updated,omitempty"`
	Images        []ProductImage `json:"images"`
}

type RetailerStat struct {
	RetailerID   int        `json:"retailer_id"`
	RetailerName string     `json:"retailer_name"`
	AveragePrice float64    `json:"average_price"`
	MinPrice     float64    `json:"min_price"`
	MaxPrice     float64    `json:"max_price"`
	StoreCount   int        `json:"store_count"`
	LastUpdated  *Timestamp `json:"last_updated,omitempty"`
}

type RetailerProduct struct {
	RetailerID                int        `json:"retailer_id"`
	ProductID                 int        `json:"product_id"`
	VariantName               string     `json:"variant_name"`
	Brand                     string     `json:"brand"`
	URLProduct                string     `json:"url_product"`
	RetailUnit                string     `json:"retail_unit"`
	RetailPriceComparisonUnit *string    `json:"retail_price_comparison_unit"`
	CategoryID                int        `json:"category_id"`
	Created                   *Timestamp `json:"created,omitempty"`
	Updated                   *Timestamp `json:"updated,omitempty"`
}

type ProductInfo struct {
	Product                 BaseProduct       `json:"product"`
	MedianPriceAllRetailers float64           `json:"median_price_all_retailers"`
	RetailerStats           []RetailerStat    `json:"retailer_stats"`
	RetailerProducts        []RetailerProduct `json:"retailer_products"`
}

// BasicStats is passed through untouched; the backend owns its shape.
type BasicStats map[string]any

// Timestamp accepts RFC 3339 and the naive ISO layouts the backend emits
// (no zone means UTC) and always encodes as RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (*Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &Timestamp{Time: t}, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}

// String renders the timestamp as RFC 3339.
func (t Timestamp) String() string {
	return t.Time.Format(time.RFC3339Nano)
}
