package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pitstopcrm/gateway/internal/model"
)

// WriteAPIError short-circuits the request with the standard error envelope.
// The audit recorder for the request, when present, is finalized with the
// error before the response body goes out.
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr *model.APIError) {
	status := apiErr.HTTPStatus()

	if rec := GetRecorder(r.Context()); rec != nil {
		rec.LogError(status, apiErr.Message)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiErr.Envelope())
}

// SetRateLimitHeaders surfaces quota state as the standard response headers.
func SetRateLimitHeaders(w http.ResponseWriter, limit, remaining int, resetAt time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
}
