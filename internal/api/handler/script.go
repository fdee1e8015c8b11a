package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/svennapp/svennProductsFE/internal/api/request"
	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/tracker"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

// MaxRunWait bounds how long a run request with wait=true is held open.
const MaxRunWait = 5 * time.Minute

type Script struct {
	manager *workspace.Manager
}

func NewScript(manager *workspace.Manager) *Script {
	return &Script{manager: manager}
}

type scriptList struct {
	selectionResponse
	Scripts []workspace.ScriptView `json:"scripts"`
}

func (h *Script) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, scriptList{selectionResponse: selection(ws), Scripts: ws.Scripts()})
}

func (h *Script) Refresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	if err := ws.RefreshScripts(r.Context()); err != nil {
		response.WriteGatewayError(w, err, "Failed to load scripts")
		return
	}
	response.WriteJSON(w, http.StatusOK, scriptList{selectionResponse: selection(ws), Scripts: ws.Scripts()})
}

func (h *Script) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	view, found := ws.Script(id)
	if !found {
		response.WriteError(w, http.StatusNotFound, "script not found")
		return
	}
	response.WriteJSON(w, http.StatusOK, view)
}

// Run triggers a script. With wait=true the response is held until the run
// leaves the active phases or MaxRunWait passes.
func (h *Script) Run(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	err := ws.Tracker.Run(r.Context(), id)
	switch {
	case errors.Is(err, tracker.ErrAlreadyRunning):
		response.WriteError(w, http.StatusConflict, "script is already running")
		return
	case errors.Is(err, tracker.ErrNoExecutionID):
		response.WriteError(w, http.StatusBadGateway, "No execution ID provided")
		return
	case errors.Is(err, tracker.ErrClosed):
		// The workspace was swept after it was looked up.
		response.WriteError(w, http.StatusServiceUnavailable, "workspace closed, retry the request")
		return
	case errors.Is(err, tracker.ErrCancelled):
		response.WriteJSON(w, http.StatusOK, ws.Tracker.State(id))
		return
	case err != nil:
		response.WriteGatewayError(w, err, "Failed to run script")
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), MaxRunWait)
		defer cancel()
		st, err := ws.Tracker.Wait(ctx, id)
		if err != nil {
			response.WriteJSON(w, http.StatusAccepted, st)
			return
		}
		response.WriteJSON(w, http.StatusOK, st)
		return
	}

	response.WriteJSON(w, http.StatusAccepted, ws.Tracker.State(id))
}

// Cancel stops following a run. The remote execution keeps going.
func (h *Script) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	cancelled := ws.Tracker.Cancel(id)
	response.WriteJSON(w, http.StatusOK, map[string]any{
		"cancelled": cancelled,
		"state":     ws.Tracker.State(id),
	})
}

func (h *Script) State(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, ws.Tracker.State(id))
}

// Logs returns the log lines of the script's last known execution.
func (h *Script) Logs(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	level, err := gateway.ParseLogLevel(r.URL.Query().Get("level"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	exec, _ := ws.Tracker.LastExecution(id)
	logs, err := ws.Tracker.Logs(r.Context(), id, level)
	if errors.Is(err, tracker.ErrNoRecentExecution) {
		response.WriteError(w, http.StatusNotFound, "No recent execution found")
		return
	}
	if err != nil {
		response.WriteGatewayError(w, err, "Failed to fetch logs")
		return
	}

	response.WriteJSON(w, http.StatusOK, map[string]any{
		"execution": exec,
		"level":     level,
		"logs":      logs,
	})
}

// Executions lists the script's recent executions from the backend.
func (h *Script) Executions(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	p := request.ParsePaging(r, 10)
	execs, err := ws.Tracker.Executions(r.Context(), id, p.Skip, p.Limit)
	if err != nil {
		response.WriteGatewayError(w, err, "Failed to fetch executions")
		return
	}
	response.WriteJSON(w, http.StatusOK, execs)
}

// Schedule creates or updates the script's scheduled job.
func (h *Script) Schedule(w http.ResponseWriter, r *http.Request) {
	id, ok := scriptParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Schedule string `json:"schedule"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	job, err := ws.SaveSchedule(r.Context(), id, req.Schedule)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, job)
}
