package middleware

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/pitstopcrm/gateway/internal/service"
)

// RecorderKey is the context key for the request's audit recorder.
const RecorderKey contextKey = "audit_recorder"

// Audit attaches an audit recorder to every request and guarantees it is
// finalized exactly once. Error paths finalize early through WriteAPIError;
// everything else is finalized here from the captured status code. When
// captureBody is set, up to maxBody bytes of the request body are recorded.
func Audit(auditor *service.Auditor, captureBody bool, maxBody int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := auditor.NewRecorder(r)

			if captureBody && r.Body != nil && r.ContentLength != 0 {
				body, _ := io.ReadAll(io.LimitReader(r.Body, int64(maxBody)))
				rest, _ := io.ReadAll(r.Body)
				r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), bytes.NewReader(rest)))
				rec.SetRequestBody(string(body))
			}

			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			ctx := context.WithValue(r.Context(), RecorderKey, rec)

			next.ServeHTTP(ww, r.WithContext(ctx))

			if ww.status >= 400 {
				rec.LogError(ww.status, "")
			} else {
				rec.LogSuccess(ww.status)
			}
		})
	}
}

// GetRecorder extracts the audit recorder from the context, or nil.
func GetRecorder(ctx context.Context) *service.Recorder {
	if rec, ok := ctx.Value(RecorderKey).(*service.Recorder); ok {
		return rec
	}
	return nil
}
