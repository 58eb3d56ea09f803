package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pitstopcrm/gateway/internal/keys"
	"github.com/pitstopcrm/gateway/internal/model"
	"github.com/pitstopcrm/gateway/internal/server/middleware"
	"github.com/pitstopcrm/gateway/internal/service"
	"github.com/pitstopcrm/gateway/internal/store"
	"github.com/pitstopcrm/gateway/internal/validate"
)

// KeysHandler serves owner-scoped credential management: create, list,
// inspect, edit, and revoke API keys.
type KeysHandler struct {
	store  *store.Store
	authn  *service.Authenticator
	logger *slog.Logger

	defaultPerMinute int
	defaultPerDay    int
}

func NewKeysHandler(st *store.Store, authn *service.Authenticator, defaultPerMinute, defaultPerDay int, logger *slog.Logger) *KeysHandler {
	return &KeysHandler{
		store:            st,
		authn:            authn,
		logger:           logger,
		defaultPerMinute: defaultPerMinute,
		defaultPerDay:    defaultPerDay,
	}
}

func nonNegative() *float64 { zero := 0.0; return &zero }

var keyRules = []validate.Rule{
	{Field: "label", Type: validate.TypeString, Required: true, MinLen: 1, MaxLen: 100},
	{Field: "permissions", Type: validate.TypeObject, Check: checkPermissions},
	{Field: "rate_limit_per_minute", Type: validate.TypeNumber, Min: nonNegative()},
	{Field: "rate_limit_per_day", Type: validate.TypeNumber, Min: nonNegative()},
	{Field: "expires_at", Type: validate.TypeString, Check: checkExpiry},
	{Field: "is_active", Type: validate.TypeBoolean},
}

// checkPermissions accepts only the three known action lists, each holding
// strings.
func checkPermissions(value any) error {
	obj, ok := value.(map[string]any)
	if !ok {
		return errors.New("must be an object")
	}
	for action, list := range obj {
		switch action {
		case model.ActionRead, model.ActionWrite, model.ActionDelete:
		default:
			return fmt.Errorf("unknown action %q", action)
		}
		items, ok := list.([]any)
		if !ok {
			return fmt.Errorf("%s must be an array of resource names", action)
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("%s entries must be strings", action)
			}
		}
	}
	return nil
}

func checkExpiry(value any) error {
	s, ok := value.(string)
	if !ok {
		return errors.New("must be an RFC 3339 timestamp")
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return errors.New("must be an RFC 3339 timestamp")
	}
	if t.Before(time.Now()) {
		return errors.New("must be in the future")
	}
	return nil
}

func parsePermissions(payload map[string]any) (model.PermissionSet, error) {
	var perms model.PermissionSet
	raw, ok := payload["permissions"]
	if !ok || raw == nil {
		return perms, nil
	}
	// Round-trip through JSON: validation already guaranteed the shape.
	buf, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(buf, &perms)
	}
	return perms, err
}

// Create issues a new API key. The raw secret appears in this response and
// nowhere else, ever.
func (h *KeysHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	payload, apiErr := validate.ParseAndValidate(r, keyRules)
	if apiErr != nil {
		writeError(w, r, h.logger, apiErr)
		return
	}

	perms, err := parsePermissions(payload)
	if err != nil {
		writeError(w, r, h.logger, model.ErrBadRequest("malformed permissions object"))
		return
	}

	raw, digest, preview, err := keys.Generate()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	cred := &model.Credential{
		AccountID:          accountID,
		KeyHash:            digest,
		KeyPreview:         preview,
		Label:              payload["label"].(string),
		Permissions:        perms,
		RateLimitPerMinute: h.defaultPerMinute,
		RateLimitPerDay:    h.defaultPerDay,
		IsActive:           true,
	}
	if n, ok := payload["rate_limit_per_minute"].(float64); ok {
		cred.RateLimitPerMinute = int(n)
	}
	if n, ok := payload["rate_limit_per_day"].(float64); ok {
		cred.RateLimitPerDay = int(n)
	}
	if s, ok := payload["expires_at"].(string); ok {
		t, _ := time.Parse(time.RFC3339, s)
		cred.ExpiresAt = &t
	}

	if err := h.store.CreateCredential(r.Context(), cred); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	writeCreated(w, map[string]any{
		"key":        raw,
		"credential": cred,
	})
}

// List returns all of the owner's credentials, raw secrets excluded.
func (h *KeysHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())

	creds, err := h.store.ListCredentialsByAccount(r.Context(), accountID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, model.NewList(creds, 1, len(creds), int64(len(creds))))
}

// Get returns one credential by ID.
func (h *KeysHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	id := chi.URLParam(r, "keyID")

	cred, err := h.store.GetCredential(r.Context(), accountID, id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, r, h.logger, model.ErrNotFoundf("credential %s not found", id))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}
	writeSuccess(w, cred)
}

// Update edits the owner-mutable fields of a credential: label, active flag,
// permission lists, quotas, and expiry. The validated-credential cache entry
// is evicted so the change takes effect immediately.
func (h *KeysHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	id := chi.URLParam(r, "keyID")

	// Same rules as create, but nothing is required on update.
	rules := make([]validate.Rule, len(keyRules))
	copy(rules, keyRules)
	for i := range rules {
		rules[i].Required = false
	}

	payload, apiErr := validate.ParseAndValidate(r, rules)
	if apiErr != nil {
		writeError(w, r, h.logger, apiErr)
		return
	}

	cred, err := h.store.GetCredential(r.Context(), accountID, id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, r, h.logger, model.ErrNotFoundf("credential %s not found", id))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	if s, ok := payload["label"].(string); ok {
		cred.Label = s
	}
	if b, ok := payload["is_active"].(bool); ok {
		cred.IsActive = b
	}
	if _, ok := payload["permissions"]; ok {
		perms, err := parsePermissions(payload)
		if err != nil {
			writeError(w, r, h.logger, model.ErrBadRequest("malformed permissions object"))
			return
		}
		cred.Permissions = perms
	}
	if n, ok := payload["rate_limit_per_minute"].(float64); ok {
		cred.RateLimitPerMinute = int(n)
	}
	if n, ok := payload["rate_limit_per_day"].(float64); ok {
		cred.RateLimitPerDay = int(n)
	}
	if s, ok := payload["expires_at"].(string); ok {
		t, _ := time.Parse(time.RFC3339, s)
		cred.ExpiresAt = &t
	}

	if err := h.store.UpdateCredential(r.Context(), cred); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.authn.Invalidate(cred.KeyHash)

	writeSuccess(w, cred)
}

// Revoke deactivates a credential. The row survives so audit history stays
// resolvable; the key stops authenticating immediately.
func (h *KeysHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	accountID := middleware.GetAccountID(r.Context())
	id := chi.URLParam(r, "keyID")

	cred, err := h.store.GetCredential(r.Context(), accountID, id)
	if err != nil {
		if err == store.ErrNotFound {
			writeError(w, r, h.logger, model.ErrNotFoundf("credential %s not found", id))
			return
		}
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.store.RevokeCredential(r.Context(), accountID, id); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.authn.Invalidate(cred.KeyHash)

	writeSuccess(w, map[string]any{"revoked": true, "id": id})
}
