package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pitstopcrm/gateway/internal/model"
)

func TestRequestIDGenerated(t *testing.T) {
	var seenID string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	if seenID == "" {
		t.Fatal("expected request ID in context")
	}
	if err := uuid.Validate(seenID); err != nil {
		t.Errorf("request ID not a UUID: %q", seenID)
	}
	if got := w.Header().Get("X-Request-ID"); got != seenID {
		t.Errorf("response header %q, context %q", got, seenID)
	}
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "client-supplied")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Errorf("got %q, want client-supplied", got)
	}
}

func TestActionForMethod(t *testing.T) {
	tests := []struct {
		method string
		want   string
	}{
		{http.MethodGet, model.ActionRead},
		{http.MethodHead, model.ActionRead},
		{http.MethodPost, model.ActionWrite},
		{http.MethodPut, model.ActionWrite},
		{http.MethodPatch, model.ActionWrite},
		{http.MethodDelete, model.ActionDelete},
	}
	for _, tt := range tests {
		if got := ActionForMethod(tt.method); got != tt.want {
			t.Errorf("ActionForMethod(%s) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestWriteAPIErrorEnvelope(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/clients", nil)

	WriteAPIError(w, r, model.ErrForbidden("missing permission"))

	if w.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want 403", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var body struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string    `json:"code"`
			Message   string    `json:"message"`
			Timestamp time.Time `json:"timestamp"`
		} `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if body.Success {
		t.Error("expected success=false")
	}
	if body.Error.Code != model.CodeForbidden {
		t.Errorf("code: got %q", body.Error.Code)
	}
	if body.Error.Message != "missing permission" {
		t.Errorf("message: got %q", body.Error.Message)
	}
	if body.Error.Timestamp.IsZero() {
		t.Error("expected timestamp set")
	}
}

func TestSetRateLimitHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	resetAt := time.Date(2026, 3, 1, 12, 31, 0, 0, time.UTC)

	SetRateLimitHeaders(w, 60, 12, resetAt)

	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("limit header: got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "12" {
		t.Errorf("remaining header: got %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Reset"); got != "1772368260" {
		t.Errorf("reset header: got %q", got)
	}
}

func TestGettersOnBareContext(t *testing.T) {
	ctx := httptest.NewRequest("GET", "/", nil).Context()

	if GetAuthContext(ctx) != nil {
		t.Error("expected nil auth context")
	}
	if GetRecorder(ctx) != nil {
		t.Error("expected nil recorder")
	}
	if GetRequestID(ctx) != "" {
		t.Error("expected empty request ID")
	}
	if GetAccountID(ctx) != "" {
		t.Error("expected empty account ID")
	}
}

func TestRequirePermissionWithoutAuth(t *testing.T) {
	h := RequirePermission()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without authentication")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/clients", nil))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", w.Code)
	}
}

func TestResponseWriterCapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	ww.WriteHeader(http.StatusTeapot)
	ww.WriteHeader(http.StatusOK) // later calls ignored
	n, err := ww.Write([]byte("body"))
	if err != nil || n != 4 {
		t.Fatalf("Write: n=%d err=%v", n, err)
	}

	if ww.status != http.StatusTeapot {
		t.Errorf("status: got %d, want 418", ww.status)
	}
	if ww.bytes != 4 {
		t.Errorf("bytes: got %d, want 4", ww.bytes)
	}
	if rec.Code != http.StatusTeapot {
		t.Errorf("underlying status: got %d", rec.Code)
	}
}
