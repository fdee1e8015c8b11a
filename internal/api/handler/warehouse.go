package handler

import (
	"net/http"

	"github.com/svennapp/svennProductsFE/internal/api/request"
	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/gateway"
	"github.com/svennapp/svennProductsFE/internal/workspace"
)

type Warehouse struct {
	manager *workspace.Manager
}

func NewWarehouse(manager *workspace.Manager) *Warehouse {
	return &Warehouse{manager: manager}
}

func (h *Warehouse) List(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	warehouses, err := ws.Directory.Warehouses(r.Context())
	if err != nil {
		response.WriteGatewayError(w, err, "failed to load warehouses")
		return
	}

	response.WriteJSON(w, http.StatusOK, warehouses)
}

type selectionResponse struct {
	WarehouseID int    `json:"warehouse_id"`
	Loading     bool   `json:"loading"`
	Error       string `json:"error,omitempty"`
}

func selection(ws *workspace.Workspace) selectionResponse {
	resp := selectionResponse{
		WarehouseID: ws.Directory.WarehouseID(),
		Loading:     ws.Directory.IsLoading(),
	}
	if err := ws.Directory.Err(); err != nil {
		resp.Error = gateway.Message(err, "Failed to load scripts")
	}
	return resp
}

// Selected returns the selected warehouse, 0 when none is.
func (h *Warehouse) Selected(w http.ResponseWriter, r *http.Request) {
	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, selection(ws))
}

func (h *Warehouse) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WarehouseID *int `json:"warehouse_id" validate:"required,gte=0"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	ws, ok := currentWorkspace(w, r, h.manager)
	if !ok {
		return
	}

	if err := ws.SelectWarehouse(r.Context(), *req.WarehouseID); err != nil {
		response.WriteGatewayError(w, err, "Failed to load scripts")
		return
	}

	response.WriteJSON(w, http.StatusOK, selection(ws))
}
