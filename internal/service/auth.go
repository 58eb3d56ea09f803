package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/pitstopcrm/gateway/internal/keys"
	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/store"
)

// AuthContext is the resolved identity attached to a request after
// successful authentication.
type AuthContext struct {
	Credential *model.Credential
	AccountID  string
}

const (
	credentialCacheTTL = time.Minute
	touchTimeout       = 5 * time.Second
)

// Authenticator resolves inbound credentials to account records. Validated
// credentials are cached briefly to keep the store off the hot path.
type Authenticator struct {
	store  *store.Store
	cache  *ristretto.Cache[string, *model.Credential]
	logger *slog.Logger
	now    func() time.Time
}

// NewAuthenticator builds an Authenticator backed by the given store.
func NewAuthenticator(st *store.Store, logger *slog.Logger) (*Authenticator, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *model.Credential]{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Authenticator{
		store:  st,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ExtractKey pulls the raw credential from the Authorization Bearer header
// or the X-API-Key header. Returns "" when neither carries a value.
func ExtractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// Authenticate validates the request's credential and returns the resolved
// AuthContext. All failures come back as a typed *model.APIError; a missing
// or empty credential fails before any store lookup happens.
func (a *Authenticator) Authenticate(r *http.Request) (*AuthContext, *model.APIError) {
	raw := ExtractKey(r)
	if raw == "" {
		return nil, model.ErrUnauthorized("API key required: provide Authorization: Bearer <key> or X-API-Key header")
	}

	digest := keys.Hash(raw)

	cred, ok := a.cache.Get(digest)
	if !ok {
		var err error
		cred, err = a.store.GetCredentialByHash(r.Context(), digest)
		if err != nil {
			if err == store.ErrNotFound {
				return nil, model.ErrInvalidKey()
			}
			a.logger.Error("credential lookup failed", "error", err)
			return nil, model.ErrInternal()
		}
		a.cache.SetWithTTL(digest, cred, 1, credentialCacheTTL)
	}

	// Expiry wins over the active flag: an expired key reports EXPIRED_KEY
	// even if it was also deactivated.
	if cred.IsExpired(a.now()) {
		return nil, model.ErrExpiredKey()
	}
	// Inactive is indistinguishable from absent, so key existence never leaks.
	if !cred.IsActive {
		return nil, model.ErrInvalidKey()
	}

	a.touchLastUsed(cred.ID)

	return &AuthContext{Credential: cred, AccountID: cred.AccountID}, nil
}

// touchLastUsed updates the credential's last-used timestamp off the request
// path. Failures are logged and dropped; admission never waits on this.
func (a *Authenticator) touchLastUsed(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
		defer cancel()
		if err := a.store.TouchCredentialLastUsed(ctx, id); err != nil {
			a.logger.Debug("last-used touch dropped", "credential_id", id, "error", err)
		}
	}()
}

// Invalidate evicts a cached credential after a management mutation so the
// change takes effect without waiting out the TTL. Pending admissions are
// flushed first so a just-cached entry cannot outlive the eviction.
func (a *Authenticator) Invalidate(keyHash string) {
	a.cache.Wait()
	a.cache.Del(keyHash)
}

// Close releases the cache's background resources.
func (a *Authenticator) Close() {
	a.cache.Close()
}
