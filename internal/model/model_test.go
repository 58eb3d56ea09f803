package model

import (
	"net/http"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// PermissionSet
// ---------------------------------------------------------------------------

func TestPermissionSetExactMatch(t *testing.T) {
	perms := PermissionSet{Read: []string{"clients", "vehicles"}}

	if !perms.Allows("clients", ActionRead) {
		t.Error("expected read access to clients")
	}
	if perms.Allows("invoices", ActionRead) {
		t.Error("expected no read access to invoices")
	}
	if perms.Allows("clients", ActionWrite) {
		t.Error("read grant must not imply write")
	}
	if perms.Allows("clients", ActionDelete) {
		t.Error("read grant must not imply delete")
	}
}

func TestPermissionSetWildcard(t *testing.T) {
	perms := PermissionSet{Read: []string{Wildcard}}

	for _, resource := range []string{"clients", "vehicles", "never-listed", ""} {
		if !perms.Allows(resource, ActionRead) {
			t.Errorf("wildcard should grant read on %q", resource)
		}
	}
	if perms.Allows("clients", ActionWrite) {
		t.Error("read wildcard must not grant write")
	}
}

func TestPermissionSetUnknownAction(t *testing.T) {
	perms := PermissionSet{Read: []string{Wildcard}, Write: []string{Wildcard}, Delete: []string{Wildcard}}
	if perms.Allows("clients", "admin") {
		t.Error("unknown actions must be denied")
	}
}

// ---------------------------------------------------------------------------
// Credential expiry
// ---------------------------------------------------------------------------

func TestCredentialExpiry(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cred := Credential{}
	if cred.IsExpired(now) {
		t.Error("credential without expiry must never expire")
	}

	cred.ExpiresAt = &future
	if cred.IsExpired(now) {
		t.Error("future expiry should not be expired")
	}

	cred.ExpiresAt = &past
	if !cred.IsExpired(now) {
		t.Error("past expiry should be expired")
	}
}

// ---------------------------------------------------------------------------
// Error taxonomy
// ---------------------------------------------------------------------------

func TestAPIErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err  *APIError
		want int
	}{
		{ErrUnauthorized("x"), http.StatusUnauthorized},
		{ErrInvalidKey(), http.StatusUnauthorized},
		{ErrExpiredKey(), http.StatusUnauthorized},
		{ErrForbidden("x"), http.StatusForbidden},
		{ErrNotFoundf("x"), http.StatusNotFound},
		{ErrValidation(nil), http.StatusBadRequest},
		{ErrBadRequest("x"), http.StatusBadRequest},
		{ErrRateLimited(10, time.Now()), http.StatusTooManyRequests},
		{ErrConflict("x"), http.StatusConflict},
		{ErrInternal(), http.StatusInternalServerError},
		{&APIError{Code: "SOMETHING_NEW"}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := tt.err.HTTPStatus(); got != tt.want {
			t.Errorf("%s: status got %d, want %d", tt.err.Code, got, tt.want)
		}
	}
}

func TestRateLimitedDetails(t *testing.T) {
	resetAt := time.Date(2025, 6, 1, 12, 1, 0, 0, time.UTC)
	apiErr := ErrRateLimited(60, resetAt)

	details, ok := apiErr.Details.(map[string]any)
	if !ok {
		t.Fatal("expected details map on rate-limited error")
	}
	if details["limit"] != 60 {
		t.Errorf("limit: got %v, want 60", details["limit"])
	}
	if details["reset_at"] != resetAt.Unix() {
		t.Errorf("reset_at: got %v, want %d", details["reset_at"], resetAt.Unix())
	}
}

func TestInternalErrorIsGeneric(t *testing.T) {
	apiErr := ErrInternal()
	if apiErr.Message != "internal server error" {
		t.Errorf("internal errors must not carry detail, got %q", apiErr.Message)
	}
}

// ---------------------------------------------------------------------------
// Windows
// ---------------------------------------------------------------------------

func TestWindowStartMinute(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 34, 56, 789, time.UTC)
	want := time.Date(2025, 6, 1, 12, 34, 0, 0, time.UTC)

	if got := WindowStart(WindowMinute, at); !got.Equal(want) {
		t.Errorf("minute window start: got %v, want %v", got, want)
	}
	if got := WindowEnd(WindowMinute, at); !got.Equal(want.Add(time.Minute)) {
		t.Errorf("minute window end: got %v, want %v", got, want.Add(time.Minute))
	}
}

func TestWindowStartDay(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 34, 56, 789, time.UTC)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	if got := WindowStart(WindowDay, at); !got.Equal(want) {
		t.Errorf("day window start: got %v, want %v", got, want)
	}
	if got := WindowEnd(WindowDay, at); !got.Equal(want.AddDate(0, 0, 1)) {
		t.Errorf("day window end: got %v, want %v", got, want.AddDate(0, 0, 1))
	}
}

func TestAdjacentWindowsAreDistinct(t *testing.T) {
	endOfWindow := time.Date(2025, 6, 1, 12, 34, 59, 0, time.UTC)
	startOfNext := time.Date(2025, 6, 1, 12, 35, 1, 0, time.UTC)

	a := WindowStart(WindowMinute, endOfWindow)
	b := WindowStart(WindowMinute, startOfNext)
	if a.Equal(b) {
		t.Error("requests one second apart across a boundary must land in different windows")
	}
}
