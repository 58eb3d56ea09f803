package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/pitstopcrm/gateway/internal/model"
)

// Store is the gateway's durable state backed by SQLite: accounts,
// credentials, rate-window counters, and the audit sink.
type Store struct {
	db *sqlx.DB
}

// New opens (or creates) the gateway database under dataDir. Pass an empty
// string for an in-memory database, used by tests.
func New(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == "" {
		dsn = ":memory:?_journal_mode=WAL"
	} else {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		dsn = filepath.Join(dataDir, "gateway.db") + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open gateway database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate gateway database: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable. Used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

// CreateAccount inserts a new tenant account. The ID and timestamps are
// populated on the passed struct after a successful insert.
func (s *Store) CreateAccount(ctx context.Context, acct *model.Account) error {
	now := time.Now().UTC()
	acct.ID = uuid.Must(uuid.NewV7()).String()
	acct.CreatedAt = now
	acct.UpdatedAt = now

	const q = `INSERT INTO accounts
		(id, email, password_hash, name, is_active, created_at, updated_at)
		VALUES
		(:id, :email, :password_hash, :name, :is_active, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, acct); err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccountByEmail returns an account by its unique email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*model.Account, error) {
	var acct model.Account
	if err := s.db.GetContext(ctx, &acct, "SELECT * FROM accounts WHERE email = ?", email); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account by email: %w", err)
	}
	return &acct, nil
}

// GetAccount returns an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	var acct model.Account
	if err := s.db.GetContext(ctx, &acct, "SELECT * FROM accounts WHERE id = ?", id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &acct, nil
}

// TouchAccountLogin sets the last_login_at timestamp for an account.
func (s *Store) TouchAccountLogin(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET last_login_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch account login: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch account login rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// credentialRow is a flat struct that maps 1:1 to the credentials table.
// The permission lists are stored as a JSON column and unpacked on read.
type credentialRow struct {
	ID                 string     `db:"id"`
	AccountID          string     `db:"account_id"`
	KeyHash            string     `db:"key_hash"`
	KeyPreview         string     `db:"key_preview"`
	Label              string     `db:"label"`
	PermissionsJSON    string     `db:"permissions_json"`
	RateLimitPerMinute int        `db:"rate_limit_per_minute"`
	RateLimitPerDay    int        `db:"rate_limit_per_day"`
	IsActive           bool       `db:"is_active"`
	ExpiresAt          *time.Time `db:"expires_at"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	LastUsedAt         *time.Time `db:"last_used_at"`
}

func credentialRowFromModel(c *model.Credential) (credentialRow, error) {
	perms, err := json.Marshal(c.Permissions)
	if err != nil {
		return credentialRow{}, fmt.Errorf("marshal permissions: %w", err)
	}
	return credentialRow{
		ID:                 c.ID,
		AccountID:          c.AccountID,
		KeyHash:            c.KeyHash,
		KeyPreview:         c.KeyPreview,
		Label:              c.Label,
		PermissionsJSON:    string(perms),
		RateLimitPerMinute: c.RateLimitPerMinute,
		RateLimitPerDay:    c.RateLimitPerDay,
		IsActive:           c.IsActive,
		ExpiresAt:          c.ExpiresAt,
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		LastUsedAt:         c.LastUsedAt,
	}, nil
}

func (r credentialRow) toModel() (model.Credential, error) {
	var perms model.PermissionSet
	if r.PermissionsJSON != "" {
		if err := json.Unmarshal([]byte(r.PermissionsJSON), &perms); err != nil {
			return model.Credential{}, fmt.Errorf("unmarshal permissions: %w", err)
		}
	}
	return model.Credential{
		ID:                 r.ID,
		AccountID:          r.AccountID,
		KeyHash:            r.KeyHash,
		KeyPreview:         r.KeyPreview,
		Label:              r.Label,
		Permissions:        perms,
		RateLimitPerMinute: r.RateLimitPerMinute,
		RateLimitPerDay:    r.RateLimitPerDay,
		IsActive:           r.IsActive,
		ExpiresAt:          r.ExpiresAt,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
		LastUsedAt:         r.LastUsedAt,
	}, nil
}

// CreateCredential inserts a new credential record. The key_hash must already
// be set (see keys.Generate). The ID and timestamps are populated on the
// passed struct after a successful insert.
func (s *Store) CreateCredential(ctx context.Context, cred *model.Credential) error {
	now := time.Now().UTC()
	cred.ID = uuid.Must(uuid.NewV7()).String()
	cred.CreatedAt = now
	cred.UpdatedAt = now

	row, err := credentialRowFromModel(cred)
	if err != nil {
		return err
	}

	const q = `INSERT INTO credentials
		(id, account_id, key_hash, key_preview, label, permissions_json,
		 rate_limit_per_minute, rate_limit_per_day, is_active, expires_at,
		 created_at, updated_at)
		VALUES
		(:id, :account_id, :key_hash, :key_preview, :label, :permissions_json,
		 :rate_limit_per_minute, :rate_limit_per_day, :is_active, :expires_at,
		 :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	return nil
}

// GetCredentialByHash looks up a credential by the SHA-256 hash of its raw
// key. This is the authentication hot path.
func (s *Store) GetCredentialByHash(ctx context.Context, hash string) (*model.Credential, error) {
	var row credentialRow
	if err := s.db.GetContext(ctx, &row, "SELECT * FROM credentials WHERE key_hash = ?", hash); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential by hash: %w", err)
	}
	cred, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// GetCredential returns a credential by ID, scoped to an owning account.
func (s *Store) GetCredential(ctx context.Context, accountID, id string) (*model.Credential, error) {
	var row credentialRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM credentials WHERE id = ? AND account_id = ?", id, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}
	cred, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// ListCredentialsByAccount returns all credentials owned by an account,
// newest first. Expired and inactive credentials are included so owners can
// audit them.
func (s *Store) ListCredentialsByAccount(ctx context.Context, accountID string) ([]model.Credential, error) {
	var rows []credentialRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT * FROM credentials WHERE account_id = ? ORDER BY created_at DESC", accountID)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	creds := make([]model.Credential, len(rows))
	for i, r := range rows {
		cred, err := r.toModel()
		if err != nil {
			return nil, err
		}
		creds[i] = cred
	}
	return creds, nil
}

// UpdateCredential persists owner-editable fields: label, active flag,
// permission lists, quotas, and expiry.
func (s *Store) UpdateCredential(ctx context.Context, cred *model.Credential) error {
	cred.UpdatedAt = time.Now().UTC()

	row, err := credentialRowFromModel(cred)
	if err != nil {
		return err
	}

	const q = `UPDATE credentials SET
		label = :label,
		permissions_json = :permissions_json,
		rate_limit_per_minute = :rate_limit_per_minute,
		rate_limit_per_day = :rate_limit_per_day,
		is_active = :is_active,
		expires_at = :expires_at,
		updated_at = :updated_at
		WHERE id = :id AND account_id = :account_id`

	result, err := s.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update credential rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeCredential marks a credential inactive. The row is kept so audit
// history stays resolvable.
func (s *Store) RevokeCredential(ctx context.Context, accountID, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET is_active = 0, updated_at = ? WHERE id = ? AND account_id = ?",
		time.Now().UTC(), id, accountID)
	if err != nil {
		return fmt.Errorf("revoke credential: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke credential rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchCredentialLastUsed sets the last_used_at timestamp. Called off the
// request path; the caller tolerates failures.
func (s *Store) TouchCredentialLastUsed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE credentials SET last_used_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("touch credential last used: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("touch credential rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
