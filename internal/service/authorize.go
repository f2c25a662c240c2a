package service

import (
	"natours/api/internal/apperr"
	"natours/api/internal/models"
)

// Authorize allows user only if its role is one of allowed. A nil user or an
// empty allowed set is denied.
func Authorize(user *models.User, allowed ...models.Role) error {
	if user == nil || len(allowed) == 0 || !user.HasRole(allowed...) {
		return apperr.New(apperr.InsufficientPermissions, apperr.MsgForbidden)
	}
	return nil
}
