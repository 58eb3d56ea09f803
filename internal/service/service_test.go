package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pitstopcrm/gateway/internal/keys"
	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New("")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// seedCredential inserts an active credential owned by a fresh account and
// returns it with its raw key.
func seedCredential(t *testing.T, st *store.Store, mutate func(*model.Credential)) (*model.Credential, string) {
	t.Helper()

	raw, digest, preview, err := keys.Generate()
	if err != nil {
		t.Fatalf("keys.Generate: %v", err)
	}
	// The credentials table enforces the account foreign key, so the owner
	// row must exist first.
	owner := &model.Account{
		Email:        preview + "@shop.example",
		PasswordHash: "$2a$10$notarealhash",
		Name:         "Shop Owner",
		IsActive:     true,
	}
	if err := st.CreateAccount(context.Background(), owner); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	cred := &model.Credential{
		AccountID:  owner.ID,
		KeyHash:    digest,
		KeyPreview: preview,
		Label:      "test key",
		Permissions: model.PermissionSet{
			Read:  []string{"clients"},
			Write: []string{"clients"},
		},
		RateLimitPerMinute: 60,
		RateLimitPerDay:    1000,
		IsActive:           true,
	}
	if mutate != nil {
		mutate(cred)
	}
	if err := st.CreateCredential(context.Background(), cred); err != nil {
		t.Fatalf("CreateCredential: %v", err)
	}
	return cred, raw
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
