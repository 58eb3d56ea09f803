package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/service"
)

// AccountIDKey is the context key for the management-session account ID.
const AccountIDKey contextKey = "account_id"

// RequireSession guards the management API: it validates the owner's Bearer
// session token and attaches the account ID to the context.
func RequireSession(sessions *service.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				WriteAPIError(w, r, model.ErrUnauthorized("session token required"))
				return
			}

			accountID, err := sessions.Verify(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				WriteAPIError(w, r, model.ErrUnauthorized("invalid or expired session"))
				return
			}

			ctx := context.WithValue(r.Context(), AccountIDKey, accountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccountID extracts the management-session account ID, or "".
func GetAccountID(ctx context.Context) string {
	if id, ok := ctx.Value(AccountIDKey).(string); ok {
		return id
	}
	return ""
}
