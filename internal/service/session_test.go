package service

import (
	"context"
	"testing"
	"time"

	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

func seedAccount(t *testing.T, st *store.Store, password string, active bool) *model.Account {
	t.Helper()
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	acct := &model.Account{
		Email:        "owner@shop.example",
		PasswordHash: hash,
		Name:         "Shop Owner",
		IsActive:     active,
	}
	if err := st.CreateAccount(context.Background(), acct); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return acct
}

func TestLoginAndVerify(t *testing.T) {
	st := newTestStore(t)
	sessions := NewSessions(st, "test-secret", time.Hour)
	acct := seedAccount(t, st, "correct horse battery", true)

	token, got, err := sessions.Login(context.Background(), acct.Email, "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("account: got %q, want %q", got.ID, acct.ID)
	}

	accountID, err := sessions.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if accountID != acct.ID {
		t.Errorf("verified account: got %q, want %q", accountID, acct.ID)
	}
}

func TestLoginFailures(t *testing.T) {
	st := newTestStore(t)
	sessions := NewSessions(st, "test-secret", time.Hour)
	acct := seedAccount(t, st, "correct horse battery", true)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", acct.Email, "wrong"},
		{"unknown email", "nobody@shop.example", "correct horse battery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := sessions.Login(context.Background(), tt.email, tt.password)
			if err != ErrInvalidCredentials {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	st := newTestStore(t)
	sessions := NewSessions(st, "test-secret", time.Hour)
	acct := seedAccount(t, st, "correct horse battery", false)

	_, _, err := sessions.Login(context.Background(), acct.Email, "correct horse battery")
	if err != ErrInvalidCredentials {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	st := newTestStore(t)
	sessions := NewSessions(st, "test-secret", time.Hour)
	acct := seedAccount(t, st, "correct horse battery", true)

	token, _, err := sessions.Login(context.Background(), acct.Email, "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := sessions.Verify("not-a-token"); err == nil {
		t.Error("expected garbage token rejected")
	}

	// A token signed under another secret must not verify.
	other := NewSessions(st, "different-secret", time.Hour)
	if _, err := other.Verify(token); err == nil {
		t.Error("expected cross-secret token rejected")
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	st := newTestStore(t)
	sessions := NewSessions(st, "test-secret", -time.Minute)
	acct := seedAccount(t, st, "correct horse battery", true)

	token, _, err := sessions.Login(context.Background(), acct.Email, "correct horse battery")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := sessions.Verify(token); err == nil {
		t.Error("expected expired token rejected")
	}
}
