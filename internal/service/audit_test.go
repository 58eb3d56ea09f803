package service

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/pitstopcrm/gateway/internal/model"
)

func TestAuditorRecordPersists(t *testing.T) {
	st := newTestStore(t)
	auditor := NewAuditor(st, testLogger())

	auditor.Record(model.AuditEntry{
		AccountID:    "acct-1",
		CredentialID: "cred-1",
		Endpoint:     "/api/v1/clients",
		Method:       "GET",
		StatusCode:   200,
	})
	auditor.Drain()

	entries, total, err := st.ListAuditEntries(context.Background(), "acct-1", 10, 0)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if total != 1 || len(entries) != 1 {
		t.Fatalf("expected one entry, got total=%d len=%d", total, len(entries))
	}
	if entries[0].Endpoint != "/api/v1/clients" || entries[0].StatusCode != 200 {
		t.Errorf("entry fields: %+v", entries[0])
	}
}

// A failed audit write is dropped, not surfaced; Record never panics or
// blocks the caller.
func TestAuditorWriteFailureSwallowed(t *testing.T) {
	st := newTestStore(t)
	auditor := NewAuditor(st, testLogger())
	st.Close()

	auditor.Record(model.AuditEntry{Endpoint: "/api/v1/clients", Method: "GET"})
	auditor.Drain()
}

func TestRecorderCapturesRequest(t *testing.T) {
	st := newTestStore(t)
	auditor := NewAuditor(st, testLogger())

	r := httptest.NewRequest("POST", "/api/v1/clients", nil)
	r.RemoteAddr = "10.1.2.3:4567"
	r.Header.Set("User-Agent", "pitstop-test/1.0")

	rec := auditor.NewRecorder(r)
	rec.SetIdentity("cred-1", "acct-1")
	rec.SetRequestBody(`{"name":"Ada"}`)
	rec.LogSuccess(201)
	auditor.Drain()

	entries, _, err := st.ListAuditEntries(context.Background(), "acct-1", 10, 0)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Method != "POST" || e.Endpoint != "/api/v1/clients" {
		t.Errorf("request fields: %+v", e)
	}
	if e.CallerIP != "10.1.2.3:4567" || e.UserAgent != "pitstop-test/1.0" {
		t.Errorf("caller fields: %+v", e)
	}
	if e.CredentialID != "cred-1" || e.AccountID != "acct-1" {
		t.Errorf("identity fields: %+v", e)
	}
	if e.RequestBody != `{"name":"Ada"}` {
		t.Errorf("request body: %q", e.RequestBody)
	}
	if e.StatusCode != 201 || e.ErrorMessage != "" {
		t.Errorf("outcome fields: %+v", e)
	}
	if e.LatencyMs < 0 {
		t.Errorf("latency: %v", e.LatencyMs)
	}
}

// The first finalization wins; later calls are no-ops, so a request is never
// double-counted in the audit log.
func TestRecorderFlushesOnce(t *testing.T) {
	st := newTestStore(t)
	auditor := NewAuditor(st, testLogger())

	rec := auditor.NewRecorder(httptest.NewRequest("GET", "/api/v1/clients", nil))
	rec.SetIdentity("cred-1", "acct-1")
	rec.LogError(429, "rate limit exceeded")
	rec.LogSuccess(200)
	auditor.Drain()

	entries, total, err := st.ListAuditEntries(context.Background(), "acct-1", 10, 0)
	if err != nil {
		t.Fatalf("ListAuditEntries: %v", err)
	}
	if total != 1 {
		t.Fatalf("expected one entry, got %d", total)
	}
	if entries[0].StatusCode != 429 || entries[0].ErrorMessage != "rate limit exceeded" {
		t.Errorf("expected first flush to win: %+v", entries[0])
	}
}
