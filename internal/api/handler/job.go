package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/svennapp/svennProductsFE/internal/api/request"
	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

type Job struct {
	manager *workspace.Manager
}

func NewJob(manager *workspace.Manager) *Job {
	return &Job{manager: manager}
}

// List returns the cached scheduled jobs; refresh=true reloads them first.
func (h *Job) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if err := ws.Registry.Refresh(r.Context()); err != nil {
			response.WriteGatewayError(w, err, "Failed to load jobs")
			return
		}
	}
	response.WriteJSON(w, http.StatusOK, ws.Registry.Jobs())
}

func (h *Job) Refresh(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	if err := ws.Registry.Refresh(r.Context()); err != nil {
		response.WriteGatewayError(w, err, "Failed to load jobs")
		return
	}
	response.WriteJSON(w, http.StatusOK, ws.Registry.Jobs())
}

// Toggle flips a job's enabled flag on the backend and returns the reloaded
// job.
func (h *Job) Toggle(w http.ResponseWriter, r *http.Request) {
	jobID, err := request.RequireJobID(chi.URLParam(r, "jobID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	if err := ws.Registry.Toggle(r.Context(), jobID); err != nil {
		response.WriteGatewayError(w, err, "Failed to toggle job")
		return
	}

	job, found := ws.Registry.Lookup(jobID)
	if !found {
		response.WriteJSON(w, http.StatusOK, map[string]string{"job_id": jobID})
		return
	}
	response.WriteJSON(w, http.StatusOK, job)
}
