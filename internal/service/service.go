package service

import (
	"context"
	"time"

	"natours/api/internal/models"
	"natours/api/internal/security"
)

// UserStore is the identity store. Lookups exclude inactive users and return
// repository.ErrUserNotFound when nothing matches.
type UserStore interface {
	FindByEmail(ctx context.Context, email string, withPassword bool) (models.User, error)
	GetByID(ctx context.Context, id string, withPassword bool) (models.User, error)
	Create(ctx context.Context, user models.User) error
	Save(ctx context.Context, user models.User) error
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (models.User, error)
	ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

// Notifier hands outbound mail to the delivery pipeline.
type Notifier interface {
	SendWelcome(ctx context.Context, user models.User, url string) error
	SendPasswordReset(ctx context.Context, user models.User, url string) error
}

type Hasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encodedHash string) bool
	DummyHash() string
}

type SessionCodec interface {
	Issue(subjectID string) (string, error)
	Verify(token string) (security.SessionInfo, error)
}

// AuthResult is returned by every operation that starts a session.
type AuthResult struct {
	Token string
	User  models.User
}

type Clock func() time.Time

func (c Clock) now() time.Time {
	if c == nil {
		return time.Now()
	}
	return c()
}
