package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/server/middleware"
)

// writeJSON serializes v with the given status. Content-Type is always
// application/json.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeSuccess wraps data in the success envelope with a 200.
func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, model.NewSuccess(data))
}

// writeCreated wraps data in the success envelope with a 201.
func writeCreated(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusCreated, model.NewSuccess(data))
}

// writeError renders any error through the envelope. Typed APIErrors pass
// through as-is; anything else is logged with its real cause and returned as
// a generic INTERNAL_ERROR.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	apiErr, ok := err.(*model.APIError)
	if !ok {
		logger.Error("unhandled error",
			"method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()), "error", err)
		apiErr = model.ErrInternal()
	}
	middleware.WriteAPIError(w, r, apiErr)
}

// queryInt extracts an integer query parameter, falling back to defaultVal
// when missing or unparsable.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// clampInt constrains val to [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
