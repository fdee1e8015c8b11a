package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

func scriptRequest(method, target, id string, body any) *http.Request {
	return withOperator(withChiURLParam(newRequest(method, target, body), "id", id), operator)
}

func TestScriptList(t *testing.T) {
	_, m := newFixture(t)
	selectWarehouse(t, m, 1)
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.List(rec, withOperator(newRequest(http.MethodGet, "/scripts", nil), operator))

	require.Equal(t, http.StatusOK, rec.Code)
	var got scriptList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.WarehouseID)
	require.Len(t, got.Scripts, 2)
	require.NotNil(t, got.Scripts[0].ScheduledJob)
	assert.Equal(t, "script_10", got.Scripts[0].ScheduledJob.JobID)
	assert.Equal(t, tracker.PhaseIdle, got.Scripts[1].State.Phase)
}

func TestScriptRefresh(t *testing.T) {
	b, m := newFixture(t)
	selectWarehouse(t, m, 1)
	b.Lock()
	b.Scripts[1] = append(b.Scripts[1], gateway.Script{ID: 12, Name: "maxbo", WarehouseID: 1})
	b.Unlock()
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Refresh(rec, withOperator(newRequest(http.MethodPost, "/scripts/refresh", nil), operator))

	require.Equal(t, http.StatusOK, rec.Code)
	var got scriptList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Scripts, 3)
}

func TestScriptRefresh_StopsTrackingRemovedScript(t *testing.T) {
	b, m := newFixture(t)
	b.Statuses[100] = []gateway.ExecutionStatus{{Status: gateway.ExecutionRunning}}
	ws := selectWarehouse(t, m, 1)
	require.NoError(t, ws.Tracker.Run(context.Background(), 10))
	b.Lock()
	b.Scripts[1] = b.Scripts[1][1:]
	b.Unlock()
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Refresh(rec, withOperator(newRequest(http.MethodPost, "/scripts/refresh", nil), operator))

	require.Equal(t, http.StatusOK, rec.Code)
	var got scriptList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Scripts, 1)
	assert.Equal(t, 11, got.Scripts[0].ID)
	assert.False(t, ws.Tracker.State(10).Phase.Active())
}

func TestScriptGet(t *testing.T) {
	_, m := newFixture(t)
	selectWarehouse(t, m, 1)
	h := NewScript(m)

	rec := httptest.NewRecorder()
	h.Get(rec, scriptRequest(http.MethodGet, "/scripts/11", "11", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got workspace.ScriptView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "obsbygg", got.Name)

	rec = httptest.NewRecorder()
	h.Get(rec, scriptRequest(http.MethodGet, "/scripts/20", "20", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "script not found", decodeErrorResponse(rec)["error"])
}

func TestScriptRun_Wait(t *testing.T) {
	b, m := newFixture(t)
	selectWarehouse(t, m, 1)
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Run(rec, scriptRequest(http.MethodPost, "/scripts/11/run?wait=true", "11", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var st tracker.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, tracker.PhaseCompleted, st.Phase)
	assert.Equal(t, 100, st.ExecutionID)
	assert.False(t, st.Running)
	assert.Equal(t, 1, b.Calls("POST /api/run_now/{id}"))
}

func TestScriptRun_AlreadyRunning(t *testing.T) {
	b, m := newFixture(t)
	b.Statuses[100] = []gateway.ExecutionStatus{{Status: gateway.ExecutionRunning}}
	selectWarehouse(t, m, 1)
	h := NewScript(m)

	rec := httptest.NewRecorder()
	h.Run(rec, scriptRequest(http.MethodPost, "/scripts/10/run", "10", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var st tracker.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.True(t, st.Running)

	rec = httptest.NewRecorder()
	h.Run(rec, scriptRequest(http.MethodPost, "/scripts/10/run", "10", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 1, b.Calls("POST /api/run_now/{id}"))

	rec = httptest.NewRecorder()
	h.Cancel(rec, scriptRequest(http.MethodPost, "/scripts/10/cancel", "10", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled struct {
		Cancelled bool          `json:"cancelled"`
		State     tracker.State `json:"state"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.True(t, cancelled.Cancelled)
	assert.Equal(t, tracker.PhaseIdle, cancelled.State.Phase)
}

func TestScriptRun_BackendError(t *testing.T) {
	b, m := newFixture(t)
	b.RunErrors[11] = "Script file not found"
	selectWarehouse(t, m, 1)
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Run(rec, scriptRequest(http.MethodPost, "/scripts/11/run", "11", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "Script file not found", decodeErrorResponse(rec)["error"])

	rec = httptest.NewRecorder()
	h.State(rec, scriptRequest(http.MethodGet, "/scripts/11/state", "11", nil))
	var st tracker.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, tracker.PhaseIdle, st.Phase)
	assert.Equal(t, "Script file not found", st.Error)
}

func TestScriptRun_WorkspaceClosed(t *testing.T) {
	_, m := newFixture(t)
	ws := selectWarehouse(t, m, 1)
	ws.Tracker.Close()
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Run(rec, scriptRequest(http.MethodPost, "/scripts/10/run", "10", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestScriptLogs(t *testing.T) {
	b, m := newFixture(t)
	b.Logs[100] = []gateway.LogEntry{
		{ID: 1, Level: gateway.LogLevelInfo, Message: "started"},
		{ID: 2, Level: gateway.LogLevelError, Message: "timeout on page 4"},
	}
	selectWarehouse(t, m, 1)
	h := NewScript(m)

	rec := httptest.NewRecorder()
	h.Logs(rec, scriptRequest(http.MethodGet, "/scripts/11/logs", "11", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No recent execution found", decodeErrorResponse(rec)["error"])

	rec = httptest.NewRecorder()
	h.Run(rec, scriptRequest(http.MethodPost, "/scripts/11/run?wait=true", "11", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.Logs(rec, scriptRequest(http.MethodGet, "/scripts/11/logs?level=error", "11", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Execution *gateway.Execution `json:"execution"`
		Level     gateway.LogLevel   `json:"level"`
		Logs      []gateway.LogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Execution)
	assert.Equal(t, 100, got.Execution.ExecutionID)
	require.Len(t, got.Logs, 1)
	assert.Equal(t, "timeout on page 4", got.Logs[0].Message)
}

func TestScriptLogs_InvalidLevel(t *testing.T) {
	_, m := newFixture(t)
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Logs(rec, scriptRequest(http.MethodGet, "/scripts/11/logs?level=debug", "11", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScriptExecutions(t *testing.T) {
	b, m := newFixture(t)
	b.Executions[10] = []gateway.Execution{
		{ExecutionID: 3, ScriptID: 10, Status: gateway.ExecutionCompleted},
		{ExecutionID: 2, ScriptID: 10, Status: gateway.ExecutionFailed},
		{ExecutionID: 1, ScriptID: 10, Status: gateway.ExecutionCompleted},
	}
	h := NewScript(m)
	rec := httptest.NewRecorder()

	h.Executions(rec, scriptRequest(http.MethodGet, "/scripts/10/executions?skip=1&limit=5", "10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []gateway.Execution
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ExecutionID)
}

func TestScriptSchedule(t *testing.T) {
	b, m := newFixture(t)
	selectWarehouse(t, m, 1)
	h := NewScript(m)

	tests := []struct {
		name     string
		id       string
		schedule string
		status   int
		cron     string
	}{
		{"preset updates existing", "10", "weekly", http.StatusOK, "0 0 * * 0"},
		{"custom creates", "11", "30 2 * * 1,3,5", http.StatusOK, "30 2 * * 1,3,5"},
		{"invalid", "11", "61 * * * *", http.StatusBadRequest, ""},
		{"empty", "11", "", http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Schedule(rec, scriptRequest(http.MethodPut, "/scripts/"+tt.id+"/schedule", tt.id, map[string]string{"schedule": tt.schedule}))
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status != http.StatusOK {
				assert.NotEmpty(t, decodeErrorResponse(rec)["error"])
				return
			}
			var job gateway.Job
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
			assert.Equal(t, tt.cron, job.CronExpression)
		})
	}

	assert.Equal(t, 1, b.Calls("PUT /api/jobs/{id}"))
	assert.Equal(t, 1, b.Calls("POST /api/jobs"))
}

func TestScriptRoutes(t *testing.T) {
	_, m := newFixture(t)
	selectWarehouse(t, m, 1)
	h := NewScript(m)

	r := chi.NewRouter()
	r.Get("/scripts/{id}", h.Get)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, withOperator(newRequest(http.MethodGet, "/scripts/10", nil), operator))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"byggmakker"`)
}
