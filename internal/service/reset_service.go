package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"natours/api/internal/apperr"
	"natours/api/internal/metrics"
	"natours/api/internal/models"
	"natours/api/internal/repository"
	"natours/api/internal/security"
)

const ResetPathPrefix = "/api/v1/users/resetPassword/"

type ResetOptions struct {
	TokenTTL time.Duration
	// RevealUnknownEmail answers a reset request for an unknown email with
	// NotFound instead of the generic success.
	RevealUnknownEmail bool
}

// ResetService runs the forgot-password protocol: issue a one-time token,
// persist only its digest, dispatch the link, and redeem it once.
type ResetService struct {
	users    UserStore
	hasher   Hasher
	sessions SessionCodec
	notifier Notifier
	opts     ResetOptions
	metrics  *metrics.Metrics
	clock    Clock
	log      zerolog.Logger
}

func NewResetService(
	users UserStore,
	hasher Hasher,
	sessions SessionCodec,
	notifier Notifier,
	opts ResetOptions,
	m *metrics.Metrics,
	clock Clock,
	log zerolog.Logger,
) *ResetService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 10 * time.Minute
	}
	return &ResetService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		opts:     opts,
		metrics:  m,
		clock:    clock,
		log:      log,
	}
}

// RequestReset stores a fresh reset digest for email and mails the link built
// on linkBase. If the mail cannot be dispatched the digest is cleared again
// and DispatchFailure is returned.
func (s *ResetService) RequestReset(ctx context.Context, email, linkBase string) error {
	email = models.NormalizeEmail(email)
	if email == "" {
		return apperr.New(apperr.MissingCredentials, "Please provide your email address")
	}

	user, err := s.users.FindByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.ResetRequest("unknown_email")
			if s.opts.RevealUnknownEmail {
				return apperr.Wrap(apperr.NotFound, apperr.MsgNoUserWithEmail, err)
			}
			return nil
		}
		return oops.Code("RESET_LOOKUP_FAILED").With("operation", "request reset").Wrap(err)
	}

	token, err := security.GenerateResetToken(s.clock.now(), s.opts.TokenTTL)
	if err != nil {
		return err
	}
	user.SetResetToken(token.Digest, token.ExpiresAt)
	if err := s.users.Save(ctx, user); err != nil {
		return oops.Code("RESET_SAVE_FAILED").With("operation", "request reset").With("user_id", user.ID).Wrap(err)
	}

	link := strings.TrimRight(linkBase, "/") + ResetPathPrefix + token.Plaintext
	if err := s.notifier.SendPasswordReset(ctx, user, link); err != nil {
		s.metrics.ResetRequest("dispatch_failure")
		user.ClearResetToken()
		if rbErr := s.users.Save(ctx, user); rbErr != nil {
			s.log.Error().Err(rbErr).Str("user_id", user.ID).Msg("reset rollback failed")
			return oops.Code("RESET_ROLLBACK_FAILED").With("user_id", user.ID).Wrap(errors.Join(err, rbErr))
		}
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("reset mail dispatch failed, token cleared")
		return apperr.Wrap(apperr.DispatchFailure, apperr.MsgDispatchFailure, err)
	}

	s.metrics.ResetRequest("sent")
	s.log.Info().Str("user_id", user.ID).Msg("password reset requested")
	return nil
}

// ResetPassword redeems a reset token. A token is accepted once and only
// before its expiry.
func (s *ResetService) ResetPassword(ctx context.Context, token, password, confirm string) (AuthResult, error) {
	if token == "" {
		return AuthResult{}, apperr.New(apperr.InvalidOrExpiredToken, apperr.MsgResetTokenInvalid)
	}

	now := s.clock.now()
	user, err := s.users.FindByResetDigest(ctx, security.HashResetToken(token), now)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Wrap(apperr.InvalidOrExpiredToken, apperr.MsgResetTokenInvalid, err)
		}
		return AuthResult{}, oops.Code("RESET_LOOKUP_FAILED").With("operation", "reset password").Wrap(err)
	}
	// the store filters on expiry too; this keeps the clock in one place
	if user.ResetTokenExpiresAt == nil || !user.ResetTokenExpiresAt.After(now) {
		return AuthResult{}, apperr.New(apperr.InvalidOrExpiredToken, apperr.MsgResetTokenInvalid)
	}

	if password == "" || confirm == "" {
		return AuthResult{}, apperr.New(apperr.InvalidInput, "Please provide password and passwordConfirm")
	}
	if password != confirm {
		return AuthResult{}, apperr.New(apperr.PasswordMismatch, apperr.MsgPasswordMismatch)
	}
	if err := validatePassword(password); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return AuthResult{}, oops.Code("RESET_HASH_FAILED").With("user_id", user.ID).Wrap(err)
	}
	user.ReplacePassword(hash, now)
	user.ClearResetToken()
	if err := s.users.Save(ctx, user); err != nil {
		return AuthResult{}, oops.Code("RESET_SAVE_FAILED").With("operation", "reset password").With("user_id", user.ID).Wrap(err)
	}

	token, err = s.sessions.Issue(user.ID)
	if err != nil {
		return AuthResult{}, oops.Code("SESSION_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	user.PasswordHash = ""
	s.log.Info().Str("user_id", user.ID).Msg("password reset completed")
	return AuthResult{Token: token, User: user}, nil
}

// SweepExpired clears reset digests whose window has closed.
func (s *ResetService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.users.ClearExpiredResetTokens(ctx, s.clock.now())
	if err != nil {
		return 0, err
	}
	s.metrics.ResetsSwept(n)
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("expired reset tokens swept")
	}
	return n, nil
}
