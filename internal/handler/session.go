package handler

import (
	"log/slog"
	"net/http"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/service"
	"github.com/pitstopcrm/gateway/internal/validate"
)

// SessionHandler serves the owner login/logout endpoints of the management
// API.
type SessionHandler struct {
	sessions *service.Sessions
	logger   *slog.Logger
}

func NewSessionHandler(sessions *service.Sessions, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

var loginRules = []validate.Rule{
	{Field: "email", Type: validate.TypeEmail, Required: true, MaxLen: 254},
	{Field: "password", Type: validate.TypeString, Required: true, MinLen: 8, MaxLen: 128},
}

// Login exchanges an email/password pair for a session token.
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	payload, apiErr := validate.ParseAndValidate(r, loginRules)
	if apiErr != nil {
		writeError(w, r, h.logger, apiErr)
		return
	}

	email, _ := payload["email"].(string)
	password, _ := payload["password"].(string)

	token, acct, err := h.sessions.Login(r.Context(), email, password)
	if err != nil {
		if err == service.ErrInvalidCredentials {
			writeError(w, r, h.logger, model.ErrUnauthorized("invalid email or password"))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	writeSuccess(w, map[string]any{
		"token":   token,
		"account": acct,
	})
}

// Logout acknowledges session termination. Tokens are stateless, so the
// client simply discards its copy; the endpoint exists for API symmetry.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, map[string]any{"logged_out": true})
}
