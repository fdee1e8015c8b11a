package handler

import (
	"net/http"

	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

type Dashboard struct {
	manager *workspace.Manager
}

func NewDashboard(manager *workspace.Manager) *Dashboard {
	return &Dashboard{manager: manager}
}

func (h *Dashboard) Overview(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	ov, err := ws.Overview(r.Context())
	if err != nil {
		response.WriteGatewayError(w, err, "failed to load overview")
		return
	}
	response.WriteJSON(w, http.StatusOK, ov)
}
