package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/gateway/gatewaytest"
	"github.com/svennapp/svennProductsFE/internal/session"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

// newRequest creates a new HTTP request with an optional JSON body.
func newRequest(method, target string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	r := httptest.NewRequest(method, target, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r
}

// newRequestRaw creates a new HTTP request with a raw string body.
func newRequestRaw(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// withChiURLParam adds a chi URL parameter to the request context.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// decodeErrorResponse parses the JSON error response body into a map.
func decodeErrorResponse(rec *httptest.ResponseRecorder) map[string]string {
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	return body
}

// withOperator injects an authenticated operator into the request context.
func withOperator(r *http.Request, subject string) *http.Request {
	return r.WithContext(session.WithIdentity(r.Context(), session.Identity{Subject: subject}))
}

const operator = "alice"

// newFixture returns a backend with two warehouses and a manager on top.
func newFixture(t *testing.T) (*gatewaytest.Backend, *workspace.Manager) {
	t.Helper()
	b := gatewaytest.New(t)
	b.Warehouses = []gateway.Warehouse{{ID: 1, Name: "Oslo"}, {ID: 2, Name: "Bergen"}}
	b.Scripts[1] = []gateway.Script{
		{ID: 10, Name: "byggmakker", Type: gateway.ScriptTypeSpider, WarehouseID: 1},
		{ID: 11, Name: "obsbygg", Type: gateway.ScriptTypeSpider, WarehouseID: 1},
	}
	b.Scripts[2] = []gateway.Script{
		{ID: 20, Name: "prices", Type: gateway.ScriptTypeProcessor, WarehouseID: 2},
	}
	b.Jobs = []gateway.Job{
		{ID: 1, JobID: "script_10", ScriptID: 10, CronExpression: "0 * * * *", Enabled: true},
	}
	b.Stats = gateway.BasicStats{"total_products": float64(1200)}

	m := workspace.NewManager(b.Client(), nil, nil, zerolog.Nop(), workspace.Config{
		Tracker: tracker.Config{
			PollInterval:     5 * time.Millisecond,
			MaxPollDuration:  5 * time.Second,
			MaxPollFailures:  3,
			MaxBackoff:       20 * time.Millisecond,
			ReconcileTimeout: time.Second,
		},
	})
	t.Cleanup(m.Close)
	return b, m
}

// selectWarehouse points the operator's workspace at a warehouse.
func selectWarehouse(t *testing.T, m *workspace.Manager, id int) *workspace.Workspace {
	t.Helper()
	ws, err := m.Get(context.Background(), operator)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.SelectWarehouse(context.Background(), id); err != nil {
		t.Fatal(err)
	}
	return ws
}
