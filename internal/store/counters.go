package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IncrementCounter atomically bumps the counter row for one (credential,
// endpoint, window-type, window-start) tuple, creating it at 1 if absent,
// and returns the post-increment count.
//
// The read-modify-write happens in a single statement so that concurrent
// requests sharing a window cannot both observe the pre-increment count.
// Callers compare the returned count against the limit; the request that
// tips the count past the limit is itself rejected.
func (s *Store) IncrementCounter(ctx context.Context, credentialID, endpoint, windowType string, windowStart time.Time) (int64, error) {
	const q = `INSERT INTO rate_counters
		(credential_id, endpoint, window_type, window_start, count)
		VALUES (?, ?, ?, ?, 1)
		ON CONFLICT(credential_id, endpoint, window_type, window_start)
		DO UPDATE SET count = count + 1
		RETURNING count`

	var count int64
	err := s.db.GetContext(ctx, &count, q, credentialID, endpoint, windowType, windowStart.UTC())
	if err != nil {
		return 0, fmt.Errorf("increment rate counter: %w", err)
	}
	return count, nil
}

// GetCounter returns the current count for a window tuple, or 0 if no row
// exists. Read-only; used by tests and operational inspection.
func (s *Store) GetCounter(ctx context.Context, credentialID, endpoint, windowType string, windowStart time.Time) (int64, error) {
	const q = `SELECT count FROM rate_counters
		WHERE credential_id = ? AND endpoint = ? AND window_type = ? AND window_start = ?`

	var count int64
	err := s.db.GetContext(ctx, &count, q, credentialID, endpoint, windowType, windowStart.UTC())
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("get rate counter: %w", err)
	}
	return count, nil
}

// PruneCounters deletes counter rows whose window started before the cutoff.
// Stale rows are already irrelevant for correctness; this is garbage
// collection only.
func (s *Store) PruneCounters(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM rate_counters WHERE window_start < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune rate counters: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rate counters rows affected: %w", err)
	}
	return n, nil
}
