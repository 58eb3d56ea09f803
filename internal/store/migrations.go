package store

import "fmt"

func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			last_login_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			key_hash TEXT UNIQUE NOT NULL,
			key_preview TEXT NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			permissions_json TEXT NOT NULL DEFAULT '{}',
			rate_limit_per_minute INTEGER NOT NULL DEFAULT 60,
			rate_limit_per_day INTEGER NOT NULL DEFAULT 10000,
			is_active INTEGER NOT NULL DEFAULT 1,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME
		)`,

		`CREATE INDEX IF NOT EXISTS idx_credentials_hash ON credentials(key_hash)`,
		`CREATE INDEX IF NOT EXISTS idx_credentials_account ON credentials(account_id)`,

		// One counter row per (credential, endpoint, window type, window
		// start); the composite primary key is what makes the upsert
		// increment atomic.
		`CREATE TABLE IF NOT EXISTS rate_counters (
			credential_id TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			window_type TEXT NOT NULL,
			window_start DATETIME NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (credential_id, endpoint, window_type, window_start)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_rate_counters_start ON rate_counters(window_start)`,

		`CREATE TABLE IF NOT EXISTS audit_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			credential_id TEXT NOT NULL DEFAULT '',
			account_id TEXT NOT NULL DEFAULT '',
			endpoint TEXT NOT NULL,
			method TEXT NOT NULL,
			status_code INTEGER NOT NULL,
			latency_ms REAL NOT NULL DEFAULT 0,
			caller_ip TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			request_body TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_audit_logs_account ON audit_logs(account_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_logs_credential ON audit_logs(credential_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}
