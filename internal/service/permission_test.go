package service

import (
	"strings"
	"testing"

	"github.com/pitstopcrm/gateway/internal/model"
)

func permCtx(perms model.PermissionSet) *AuthContext {
	return &AuthContext{
		Credential: &model.Credential{ID: "cred-1", Permissions: perms},
		AccountID:  "acct-1",
	}
}

func TestCheck(t *testing.T) {
	readOnly := permCtx(model.PermissionSet{Read: []string{"clients"}})
	wildcard := permCtx(model.PermissionSet{
		Read:  []string{model.Wildcard},
		Write: []string{"clients"},
	})

	tests := []struct {
		name     string
		authCtx  *AuthContext
		resource string
		action   string
		want     bool
	}{
		{"exact match", readOnly, "clients", model.ActionRead, true},
		{"missing action", readOnly, "clients", model.ActionWrite, false},
		{"missing resource", readOnly, "vehicles", model.ActionRead, false},
		{"wildcard read", wildcard, "anything", model.ActionRead, true},
		{"wildcard scoped to list", wildcard, "vehicles", model.ActionWrite, false},
		{"delete never implied", wildcard, "clients", model.ActionDelete, false},
		{"nil context", nil, "clients", model.ActionRead, false},
		{"nil credential", &AuthContext{}, "clients", model.ActionRead, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.authCtx, tt.resource, tt.action); got != tt.want {
				t.Errorf("Check(%s, %s) = %v, want %v", tt.resource, tt.action, got, tt.want)
			}
		})
	}
}

func TestRequire(t *testing.T) {
	authCtx := permCtx(model.PermissionSet{Read: []string{"clients"}})

	if err := Require(authCtx, "clients", model.ActionRead); err != nil {
		t.Fatalf("expected permission granted, got %v", err)
	}

	apiErr := Require(authCtx, "clients", model.ActionDelete)
	if apiErr == nil {
		t.Fatal("expected FORBIDDEN")
	}
	if apiErr.Code != model.CodeForbidden {
		t.Errorf("code: got %q, want %q", apiErr.Code, model.CodeForbidden)
	}
	// The message names the denied pair without enumerating held permissions.
	if !strings.Contains(apiErr.Message, "delete") || !strings.Contains(apiErr.Message, "clients") {
		t.Errorf("message missing denied pair: %q", apiErr.Message)
	}
	if strings.Contains(apiErr.Message, "read") {
		t.Errorf("message leaks held permissions: %q", apiErr.Message)
	}
}
