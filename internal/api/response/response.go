package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/svennapp/svennProductsFE/internal/gateway"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteGatewayError reports a failed backend call. Backend messages are
// passed through verbatim; client errors keep their status and everything
// else becomes 502. Transport failures get fallback as the message.
func WriteGatewayError(w http.ResponseWriter, err error, fallback string) {
	if apiErr, ok := gateway.AsAPIError(err); ok {
		status := http.StatusBadGateway
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		WriteError(w, status, apiErr.Message)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		WriteError(w, http.StatusGatewayTimeout, fallback)
		return
	}
	WriteError(w, http.StatusBadGateway, fallback)
}
