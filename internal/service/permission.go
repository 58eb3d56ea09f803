package service

import (
	"fmt"

	"github.com/pitstopcrm/gateway/internal/model"
)

// Check reports whether the authenticated caller may perform action on
// resource. Pure function over the credential's permission lists.
func Check(authCtx *AuthContext, resource, action string) bool {
	if authCtx == nil || authCtx.Credential == nil {
		return false
	}
	return authCtx.Credential.Permissions.Allows(resource, action)
}

// Require returns a FORBIDDEN error naming the missing (resource, action)
// pair when the caller lacks the permission, and nil when it holds. The
// message never reveals what the credential is allowed to do.
func Require(authCtx *AuthContext, resource, action string) *model.APIError {
	if Check(authCtx, resource, action) {
		return nil
	}
	return model.ErrForbidden(fmt.Sprintf("missing %q permission on resource %q", action, resource))
}
