package handler

import (
	"net/http"

	"github.com/svennapp/svennProductsFE/internal/api/response"
	"github.com/svennapp/svennProductsFE/internal/session"
)

// AuthInfo tells the browser how to sign in.
type AuthInfo struct {
	OAuthEnabled bool   `json:"oauth_enabled"`
	ClientID     string `json:"client_id,omitempty"`
	DevMode      bool   `json:"dev_mode"`
}

type Auth struct {
	info AuthInfo
}

func NewAuth(info AuthInfo) *Auth {
	return &Auth{info: info}
}

func (h *Auth) Provider(w http.ResponseWriter, _ *http.Request) {
	response.WriteJSON(w, http.StatusOK, h.info)
}

// Me returns the authenticated operator.
func (h *Auth) Me(w http.ResponseWriter, r *http.Request) {
	id, err := session.FromContext(r.Context())
	if err != nil {
		response.WriteError(w, http.StatusUnauthorized, "missing operator identity")
		return
	}
	response.WriteJSON(w, http.StatusOK, id)
}
