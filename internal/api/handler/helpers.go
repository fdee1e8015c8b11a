package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/svennapp/svennProductsFE/internal/api/request"
	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/schedule"
	"github.com/svennapp/svennProductsFE/internal/session"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

// currentWorkspace resolves the caller's workspace. Returns false and
// writes an error response when there is none.
func currentWorkspace(w http.ResponseWriter, r *http.Request, m *workspace.Manager) (*workspace.Workspace, bool) {
	id, err := session.FromContext(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusUnauthorized, "missing operator identity")
		return nil, false
	}
	ws, err := m.Get(r.Context(), id.Subject)
	if err != nil {
		response.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return ws, true
}

// scriptParam parses the {id} path parameter.
func scriptParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := request.RequireIntID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// writeScheduleError reports a rejected expression inline, anything else as
// a backend failure.
func writeScheduleError(w http.ResponseWriter, err error) {
	var verr *schedule.ValidationError
	if errors.As(err, &verr) {
		response.WriteError(w, http.StatusBadRequest, verr.Message)
		return
	}
	response.WriteGatewayError(w, err, "Failed to update schedule")
}
