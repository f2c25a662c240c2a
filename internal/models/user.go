package models

import (
	"strings"
	"time"
)

type Role string

const (
	RoleStandard      Role = "user"
	RoleOperator      Role = "guide"
	RoleLeadOperator  Role = "lead-guide"
	RoleAdministrator Role = "admin"
)

// PasswordChangeSkew backdates PasswordChangedAt so a session token issued in
// the same second as the change is still accepted.
const PasswordChangeSkew = time.Second

const DefaultPhoto = "default.jpg"

func (r Role) Valid() bool {
	switch r {
	case RoleStandard, RoleOperator, RoleLeadOperator, RoleAdministrator:
		return true
	}
	return false
}

func ParseRole(s string) (Role, bool) {
	role := Role(strings.TrimSpace(strings.ToLower(s)))
	if !role.Valid() {
		return "", false
	}
	return role, true
}

type User struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	Role                Role       `json:"role"`
	Photo               string     `json:"photo"`
	PasswordChangedAt   *time.Time `json:"-"`
	ResetTokenDigest    *string    `json:"-"`
	ResetTokenExpiresAt *time.Time `json:"-"`
	Active              bool       `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

// NewUser builds a first-time record. PasswordChangedAt stays unset until the
// password is replaced on the persisted record.
func NewUser(id, name, email, passwordHash string, now time.Time) User {
	return User{
		ID:           id,
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         RoleStandard,
		Photo:        DefaultPhoto,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (u *User) ReplacePassword(passwordHash string, now time.Time) {
	changedAt := now.Add(-PasswordChangeSkew)
	u.PasswordHash = passwordHash
	u.PasswordChangedAt = &changedAt
	u.UpdatedAt = now
}

func (u *User) SetResetToken(digest string, expiresAt time.Time) {
	u.ResetTokenDigest = &digest
	u.ResetTokenExpiresAt = &expiresAt
}

func (u *User) ClearResetToken() {
	u.ResetTokenDigest = nil
	u.ResetTokenExpiresAt = nil
}

func (u User) HasPendingReset() bool {
	return u.ResetTokenDigest != nil && u.ResetTokenExpiresAt != nil
}

// ChangedPasswordAfter reports whether the password was replaced after a token
// issued at issuedAt. Both sides are compared in whole seconds, the precision
// of the token's iat claim.
func (u User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func (u User) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}
