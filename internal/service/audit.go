package service

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

const auditWriteTimeout = 5 * time.Second

// Auditor persists request records best-effort. Writes happen off the
// request path; a failed write is reported to the operational log and
// otherwise discarded.
type Auditor struct {
	store  *store.Store
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewAuditor builds an Auditor backed by the given audit sink.
func NewAuditor(st *store.Store, logger *slog.Logger) *Auditor {
	return &Auditor{store: st, logger: logger}
}

// Record persists the entry fire-and-forget. It returns immediately; the
// caller's response is never delayed or failed by the audit write.
func (a *Auditor) Record(entry model.AuditEntry) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
		defer cancel()
		if err := a.store.InsertAuditEntry(ctx, &entry); err != nil {
			a.logger.Warn("audit write dropped",
				"endpoint", entry.Endpoint, "status", entry.StatusCode, "error", err)
		}
	}()
}

// Drain blocks until all in-flight audit writes finish. Called during
// graceful shutdown and by tests.
func (a *Auditor) Drain() {
	a.wg.Wait()
}

// Recorder accumulates one request's audit record. It is created when the
// request enters the middleware chain and flushed exactly once after the
// response is written.
type Recorder struct {
	auditor *Auditor
	start   time.Time
	entry   model.AuditEntry

	mu      sync.Mutex
	flushed bool
}

// NewRecorder captures the request's identifying fields and start time.
func (a *Auditor) NewRecorder(r *http.Request) *Recorder {
	return &Recorder{
		auditor: a,
		start:   time.Now(),
		entry: model.AuditEntry{
			Endpoint:  r.URL.Path,
			Method:    r.Method,
			CallerIP:  r.RemoteAddr,
			UserAgent: r.UserAgent(),
		},
	}
}

// SetIdentity attaches the authenticated credential once authentication
// succeeds. Pre-auth failures leave both fields empty.
func (rec *Recorder) SetIdentity(credentialID, accountID string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.entry.CredentialID = credentialID
	rec.entry.AccountID = accountID
}

// SetRequestBody attaches a captured (possibly truncated) request body.
func (rec *Recorder) SetRequestBody(body string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.entry.RequestBody = body
}

// LogSuccess finalizes the record for a non-error response.
func (rec *Recorder) LogSuccess(statusCode int) {
	rec.flush(statusCode, "")
}

// LogError finalizes the record for an error response.
func (rec *Recorder) LogError(statusCode int, message string) {
	rec.flush(statusCode, message)
}

func (rec *Recorder) flush(statusCode int, errMsg string) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.flushed {
		return
	}
	rec.flushed = true
	rec.entry.StatusCode = statusCode
	rec.entry.ErrorMessage = errMsg
	rec.entry.LatencyMs = float64(time.Since(rec.start).Microseconds()) / 1000.0
	rec.auditor.Record(rec.entry)
}
