package model

import "time"

// Actions a credential can be granted on a resource. Authorization is purely
// additive: an action not present in the corresponding permission list is
// denied.
const (
	ActionRead   = "read"
	ActionWrite  = "write"
	ActionDelete = "delete"
)

// Wildcard grants an action on every resource.
const Wildcard = "*"

// PermissionSet holds the three independent permission lists of a credential.
// Each list contains resource names, or the wildcard "*".
type PermissionSet struct {
	Read   []string `json:"read"`
	Write  []string `json:"write"`
	Delete []string `json:"delete"`
}

// Allows reports whether the set grants the given action on the given
// resource. The wildcard short-circuits the scan. Unknown actions are denied.
func (p PermissionSet) Allows(resource, action string) bool {
	var list []string
	switch action {
	case ActionRead:
		list = p.Read
	case ActionWrite:
		list = p.Write
	case ActionDelete:
		list = p.Delete
	default:
		return false
	}
	for _, entry := range list {
		if entry == Wildcard || entry == resource {
			return true
		}
	}
	return false
}

// Credential represents one issued API key. The raw secret is never stored;
// only a SHA-256 hash and a short non-reversible preview (the last 8 hex
// characters) are persisted.
type Credential struct {
	ID                 string        `json:"id" db:"id"`
	AccountID          string        `json:"account_id" db:"account_id"`
	KeyHash            string        `json:"-" db:"key_hash"` // SHA-256 hex, never expose
	KeyPreview         string        `json:"key_preview" db:"key_preview"`
	Label              string        `json:"label" db:"label"`
	Permissions        PermissionSet `json:"permissions"`
	RateLimitPerMinute int           `json:"rate_limit_per_minute" db:"rate_limit_per_minute"`
	RateLimitPerDay    int           `json:"rate_limit_per_day" db:"rate_limit_per_day"`
	IsActive           bool          `json:"is_active" db:"is_active"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
	LastUsedAt         *time.Time    `json:"last_used_at,omitempty" db:"last_used_at"`
}

// IsExpired reports whether the credential carries an expiry in the past.
// Credentials without an expiry never expire.
func (c *Credential) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}
