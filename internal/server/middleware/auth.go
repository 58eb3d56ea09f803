package middleware

import (
	"context"
	"net/http"

	"github.com/pitstopcrm/gateway/internal/service"
)

// AuthContextKey is the context key for the authenticated API-key identity.
const AuthContextKey contextKey = "auth_context"

// Authenticate validates the request's API key and attaches the resolved
// AuthContext. Failures short-circuit with the typed error envelope; a
// missing or empty credential is rejected before any store I/O.
func Authenticate(authn *service.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx, apiErr := authn.Authenticate(r)
			if apiErr != nil {
				WriteAPIError(w, r, apiErr)
				return
			}

			if rec := GetRecorder(r.Context()); rec != nil {
				rec.SetIdentity(authCtx.Credential.ID, authCtx.AccountID)
			}

			ctx := context.WithValue(r.Context(), AuthContextKey, authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAuthContext extracts the authenticated identity from the context, or
// nil for unauthenticated requests.
func GetAuthContext(ctx context.Context) *service.AuthContext {
	if authCtx, ok := ctx.Value(AuthContextKey).(*service.AuthContext); ok {
		return authCtx
	}
	return nil
}
