package model

import "time"

// AuditEntry is the immutable record of one request. CredentialID is empty
// for failures that happen before authentication resolves an identity.
type AuditEntry struct {
	ID           int64     `json:"id" db:"id"`
	CredentialID string    `json:"credential_id,omitempty" db:"credential_id"`
	AccountID    string    `json:"account_id,omitempty" db:"account_id"`
	Endpoint     string    `json:"endpoint" db:"endpoint"`
	Method       string    `json:"method" db:"method"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	LatencyMs    float64   `json:"latency_ms" db:"latency_ms"`
	CallerIP     string    `json:"caller_ip" db:"caller_ip"`
	UserAgent    string    `json:"user_agent" db:"user_agent"`
	RequestBody  string    `json:"request_body,omitempty" db:"request_body"`
	ErrorMessage string    `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
