package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/service"
)

// RateLimitLogin throttles unauthenticated login attempts per client IP with
// a sliding window, to slow credential stuffing. Quota enforcement for
// authenticated traffic goes through RateLimit instead.
func RateLimitLogin(requestsPerMinute int) func(http.Handler) http.Handler {
	return httprate.LimitByIP(requestsPerMinute, time.Minute)
}

// RateLimit consumes one unit of the credential's quota for the {resource}
// endpoint. Admitted requests carry X-RateLimit-* headers for the tightest
// window; rejections answer 429 with the reset of the violated window. Must
// run after Authenticate.
func RateLimit(limiter *service.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r.Context())
			if authCtx == nil {
				WriteAPIError(w, r, model.ErrUnauthorized("authentication required"))
				return
			}

			endpoint := chi.URLParam(r, "resource")

			info, apiErr := limiter.CheckAndConsume(r.Context(), authCtx.Credential, endpoint)
			if apiErr != nil {
				if apiErr.Code == model.CodeRateLimitExceeded {
					details, _ := apiErr.Details.(map[string]any)
					limit, _ := details["limit"].(int)
					resetUnix, _ := details["reset_at"].(int64)
					SetRateLimitHeaders(w, limit, 0, time.Unix(resetUnix, 0))
					w.Header().Set("Retry-After", retryAfter(resetUnix))
				}
				WriteAPIError(w, r, apiErr)
				return
			}

			if info != nil {
				SetRateLimitHeaders(w, info.Limit, info.Remaining, info.ResetAt)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// retryAfter renders the seconds until the window resets, per RFC 9110.
func retryAfter(resetUnix int64) string {
	secs := resetUnix - time.Now().Unix()
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}
