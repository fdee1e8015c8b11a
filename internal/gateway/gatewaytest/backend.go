// Package gatewaytest provides an in-memory scraper backend for tests.
package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

// Backend serves the scraper API from in-memory state. Fields may be set
// before the first request; use Lock/Unlock to change them afterwards.
type Backend struct {
	mu sync.Mutex

	Warehouses []gateway.Warehouse
	Scripts    map[int][]gateway.Script
	Jobs       []gateway.Job
	// Executions per script, newest first.
	Executions map[int][]gateway.Execution
	// Logs per execution.
	Logs map[int][]gateway.LogEntry
	// Statuses queued per execution. Each poll pops one; an empty queue
	// reports completed.
	Statuses map[int][]gateway.ExecutionStatus
	Stats    gateway.BasicStats
	Products []gateway.ProductSummary
	// RunErrors makes run requests for a script fail with the given detail.
	RunErrors map[int]string

	nextExecutionID int
	nextJobID       int
	calls           map[string]int

	srv *httptest.Server
}

// New starts a backend that is closed when the test ends.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		Scripts:         make(map[int][]gateway.Script),
		Executions:      make(map[int][]gateway.Execution),
		Logs:            make(map[int][]gateway.LogEntry),
		Statuses:        make(map[int][]gateway.ExecutionStatus),
		RunErrors:       make(map[int]string),
		Stats:           gateway.BasicStats{},
		nextExecutionID: 100,
		nextJobID:       1,
		calls:           make(map[string]int),
	}

	mux := http.NewServeMux()
	b.handle(mux, "GET /api/warehouses", b.listWarehouses)
	b.handle(mux, "GET /api/warehouses/{id}/scripts", b.listScripts)
	b.handle(mux, "GET /api/jobs", b.listJobs)
	b.handle(mux, "POST /api/jobs", b.createJob)
	b.handle(mux, "PUT /api/jobs/{id}", b.updateJob)
	b.handle(mux, "POST /api/jobs/{id}/toggle", b.toggleJob)
	b.handle(mux, "POST /api/run_now/{id}", b.runScript)
	b.handle(mux, "GET /api/jobs/execution/{id}/status", b.executionStatus)
	b.handle(mux, "GET /api/jobs/scripts/{id}/logs", b.scriptLogs)
	b.handle(mux, "GET /api/jobs/executions/{id}/logs", b.executionLogs)
	b.handle(mux, "GET /api/products/search", b.searchProducts)
	b.handle(mux, "GET /api/products/stats/basic", b.basicStats)
	b.handle(mux, "GET /api/products/latest", b.latestProducts)

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *Backend) Lock()   { b.mu.Lock() }
func (b *Backend) Unlock() { b.mu.Unlock() }

func (b *Backend) URL() string {
	return b.srv.URL
}

// Client returns a gateway client pointed at the backend.
func (b *Backend) Client() *gateway.Client {
	return gateway.NewClient(b.srv.URL)
}

// Calls returns how often a route such as "POST /api/run_now/{id}" was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Job returns the backend's copy of a job.
func (b *Backend) Job(jobID string) (gateway.Job, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, j := range b.Jobs {
		if j.JobID == jobID {
			return j, true
		}
	}
	return gateway.Job{}, false
}

func (b *Backend) handle(mux *http.ServeMux, route string, h func(w http.ResponseWriter, r *http.Request)) {
	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[route]++
		b.mu.Unlock()
		h(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func pathInt(r *http.Request, name string) (int, bool) {
	n, err := strconv.Atoi(r.PathValue(name))
	return n, err == nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	if n, err := strconv.Atoi(r.URL.Query().Get(name)); err == nil {
		return n
	}
	return fallback
}

func (b *Backend) listWarehouses(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(b.Warehouses))
}

func (b *Backend) listScripts(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid warehouse id")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, nonNil(b.Scripts[id]))
}

func (b *Backend) listJobs(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	scheduledOnly := r.URL.Query().Get("scheduled_only") == "true"
	jobs := []gateway.Job{}
	for _, j := range b.Jobs {
		if scheduledOnly && !strings.HasPrefix(j.JobID, "script_") {
			continue
		}
		jobs = append(jobs, j)
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (b *Backend) createJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ScriptID       int    `json:"script_id"`
		CronExpression string `json:"cron_expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	jobID := fmt.Sprintf("script_%d", req.ScriptID)
	for _, j := range b.Jobs {
		if j.JobID == jobID {
			writeDetail(w, http.StatusBadRequest, "Job already exists for this script")
			return
		}
	}
	job := gateway.Job{
		ID:             b.nextJobID,
		JobID:          jobID,
		ScriptID:       req.ScriptID,
		CronExpression: req.CronExpression,
		Enabled:        true,
		CreatedAt:      gateway.NewTimestamp(time.Now().UTC()),
	}
	b.nextJobID++
	b.Jobs = append(b.Jobs, job)
	writeJSON(w, http.StatusOK, job)
}

func (b *Backend) updateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CronExpression string `json:"cron_expression"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Jobs {
		if b.Jobs[i].JobID == r.PathValue("id") {
			b.Jobs[i].CronExpression = req.CronExpression
			writeJSON(w, http.StatusOK, b.Jobs[i])
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Job not found")
}

func (b *Backend) toggleJob(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.Jobs {
		if b.Jobs[i].JobID == r.PathValue("id") {
			b.Jobs[i].Enabled = !b.Jobs[i].Enabled
			writeJSON(w, http.StatusOK, map[string]any{"message": "Job toggled", "enabled": b.Jobs[i].Enabled})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Job not found")
}

func (b *Backend) runScript(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := pathInt(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid script id")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if detail, failed := b.RunErrors[scriptID]; failed {
		writeDetail(w, http.StatusInternalServerError, detail)
		return
	}
	id := b.nextExecutionID
	b.nextExecutionID++
	exec := gateway.Execution{
		ExecutionID: id,
		ScriptID:    scriptID,
		Timestamp:   gateway.NewTimestamp(time.Now().UTC()),
		Status:      gateway.ExecutionRunning,
	}
	b.Executions[scriptID] = append([]gateway.Execution{exec}, b.Executions[scriptID]...)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "Script execution started",
		"job_id":       fmt.Sprintf("run_now_%d", scriptID),
		"execution_id": id,
		"status":       gateway.ExecutionRunning,
	})
}

func (b *Backend) executionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid execution id")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var st gateway.ExecutionStatus
	if queue := b.Statuses[id]; len(queue) > 0 {
		st = queue[0]
		if len(queue) > 1 {
			b.Statuses[id] = queue[1:]
		}
	} else {
		now := time.Now().UTC()
		st = gateway.ExecutionStatus{
			Status:  gateway.ExecutionCompleted,
			EndTime: gateway.NewTimestamp(now),
		}
	}
	st.ExecutionID = id

	if !st.Status.InFlight() {
		for scriptID, execs := range b.Executions {
			for i := range execs {
				if execs[i].ExecutionID == id {
					b.Executions[scriptID][i].Status = st.Status
					b.Executions[scriptID][i].Error = st.ErrorMessage
				}
			}
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (b *Backend) scriptLogs(w http.ResponseWriter, r *http.Request) {
	scriptID, ok := pathInt(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid script id")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	execs := b.Executions[scriptID]
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)
	if skip > len(execs) {
		skip = len(execs)
	}
	end := skip + limit
	if end > len(execs) {
		end = len(execs)
	}
	writeJSON(w, http.StatusOK, append([]gateway.Execution{}, execs[skip:end]...))
}

func (b *Backend) executionLogs(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(r, "id")
	if !ok {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid execution id")
		return
	}
	level := gateway.LogLevel(r.URL.Query().Get("level"))
	b.mu.Lock()
	defer b.mu.Unlock()
	out := []gateway.LogEntry{}
	for _, e := range b.Logs[id] {
		if level != "" && e.Level != level {
			continue
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (b *Backend) searchProducts(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)
	b.mu.Lock()
	defer b.mu.Unlock()
	var matches []gateway.ProductSummary
	for _, p := range b.Products {
		if strings.Contains(strings.ToLower(p.BaseName), q) {
			matches = append(matches, p)
		}
	}
	total := len(matches)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	writeJSON(w, http.StatusOK, gateway.ProductSearchResponse{
		Items:   nonNil(matches[offset:end]),
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: end < total,
	})
}

func (b *Backend) basicStats(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, http.StatusOK, b.Stats)
}

func (b *Backend) latestProducts(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 10)
	b.mu.Lock()
	defer b.mu.Unlock()
	if skip > len(b.Products) {
		skip = len(b.Products)
	}
	end := skip + limit
	if end > len(b.Products) {
		end = len(b.Products)
	}
	writeJSON(w, http.StatusOK, nonNil(b.Products[skip:end]))
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
