package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/service"
)

// ActionForMethod maps an HTTP method to the permission action it requires.
func ActionForMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return model.ActionRead
	case http.MethodDelete:
		return model.ActionDelete
	default:
		return model.ActionWrite
	}
}

// RequirePermission enforces that the authenticated credential may perform
// the method-implied action on the {resource} route parameter. Must run
// after Authenticate.
func RequirePermission() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				WriteAPIError(w, r, model.ErrUnauthorized("authentication required"))
				return
			}

			resource := chi.URLParam(r, "resource")
			action := ActionForMethod(r.Method)

			if apiErr := service.Require(authCtx, resource, action); apiErr != nil {
				WriteAPIError(w, r, apiErr)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
