package store

import (
	"context"
	"fmt"
	"time"

	"github.com/pitstopcrm/gateway/internal/model"
)

// InsertAuditEntry appends one request record to the audit sink. Callers on
// the request path invoke this fire-and-forget and swallow the error.
func (s *Store) InsertAuditEntry(ctx context.Context, entry *model.AuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const q = `INSERT INTO audit_logs
		(credential_id, account_id, endpoint, method, status_code, latency_ms,
		 caller_ip, user_agent, request_body, error_message, created_at)
		VALUES
		(:credential_id, :account_id, :endpoint, :method, :status_code, :latency_ms,
		 :caller_ip, :user_agent, :request_body, :error_message, :created_at)`

	result, err := s.db.NamedExecContext(ctx, q, entry)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get audit entry id: %w", err)
	}
	entry.ID = id
	return nil
}

// ListAuditEntries returns a page of audit records for one account, newest
// first, along with the total count for pagination.
func (s *Store) ListAuditEntries(ctx context.Context, accountID string, limit, offset int) ([]model.AuditEntry, int64, error) {
	var total int64
	err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM audit_logs WHERE account_id = ?", accountID)
	if err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	var entries []model.AuditEntry
	err = s.db.SelectContext(ctx, &entries,
		`SELECT * FROM audit_logs WHERE account_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		accountID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, total, nil
}
