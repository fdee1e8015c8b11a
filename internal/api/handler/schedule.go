package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/svennapp/svennProductsFE/internal/api/request"
	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/schedule"
)

const previewRuns = 5

type Schedule struct {
	now func() time.Time
}

func NewSchedule() *Schedule {
	return &Schedule{now: time.Now}
}

func (h *Schedule) Presets(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, schedule.Presets)
}

type validateResponse struct {
	Expression string      `json:"expression"`
	Preset     string      `json:"preset,omitempty"`
	Valid      bool        `json:"valid"`
	Field      string      `json:"field,omitempty"`
	Error      string      `json:"error,omitempty"`
	NextRuns   []time.Time `json:"next_runs,omitempty"`
}

// Validate checks an expression or preset key without saving it and
// previews the next runs. Rejections are reported in the body with 200.
func (h *Schedule) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expression string `json:"expression"`
	}
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	expr := schedule.Resolve(req.Expression)
	resp := validateResponse{Expression: expr}
	if p, ok := schedule.LookupPreset(expr); ok {
		resp.Preset = p.Key
	}

	runs, err := schedule.NextRuns(expr, h.now().UTC(), previewRuns)
	var verr *schedule.ValidationError
	switch {
	case errors.As(err, &verr):
		resp.Field = verr.Field
		resp.Error = verr.Message
	case err != nil:
		resp.Error = err.Error()
	default:
		resp.Valid = true
		resp.NextRuns = runs
	}

	response.WriteJSON(w, http.StatusOK, resp)
}
