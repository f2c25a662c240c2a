package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"natours/api/internal/apperr"
	"natours/api/internal/ids"
	"natours/api/internal/metrics"
	"natours/api/internal/models"
	"natours/api/internal/repository"
	"natours/api/internal/security"
)

type AuthService struct {
	users    UserStore
	hasher   Hasher
	sessions SessionCodec
	notifier Notifier
	metrics  *metrics.Metrics
	clock    Clock
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	hasher Hasher,
	sessions SessionCodec,
	notifier Notifier,
	m *metrics.Metrics,
	clock Clock,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		notifier: notifier,
		metrics:  m,
		clock:    clock,
		log:      log,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		s.metrics.Login("missing_credentials")
		return AuthResult{}, apperr.New(apperr.MissingCredentials, apperr.MsgMissingCredentials)
	}

	user, err := s.users.FindByEmail(ctx, email, true)
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		// burn the same hashing cost as a real mismatch
		s.hasher.Verify(ctx, password, s.hasher.DummyHash())
		if err := ctx.Err(); err != nil {
			return AuthResult{}, err
		}
		s.metrics.Login("invalid_credentials")
		return AuthResult{}, apperr.New(apperr.InvalidCredentials, apperr.MsgInvalidCredentials)
	case err != nil:
		return AuthResult{}, oops.Code("LOGIN_LOOKUP_FAILED").With("operation", "login").Wrap(err)
	}

	if !s.hasher.Verify(ctx, password, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return AuthResult{}, err
		}
		s.metrics.Login("invalid_credentials")
		return AuthResult{}, apperr.New(apperr.InvalidCredentials, apperr.MsgInvalidCredentials)
	}

	result, err := s.startSession(user)
	if err != nil {
		return AuthResult{}, err
	}
	s.metrics.Login("success")
	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return result, nil
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	WelcomeURL      string
}

// Signup creates a standard-role user and starts a session. A failed welcome
// mail is logged and does not undo the signup.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	fields := signupFields{
		Name:     strings.TrimSpace(input.Name),
		Email:    models.NormalizeEmail(input.Email),
		Password: input.Password,
	}
	if err := validateStruct(fields); err != nil {
		return AuthResult{}, err
	}
	if input.Password != input.PasswordConfirm {
		return AuthResult{}, apperr.New(apperr.PasswordMismatch, apperr.MsgPasswordMismatch)
	}

	hash, err := s.hasher.Hash(ctx, input.Password)
	if err != nil {
		return AuthResult{}, oops.Code("SIGNUP_HASH_FAILED").With("operation", "signup").Wrap(err)
	}

	user := models.NewUser(ids.New(), fields.Name, fields.Email, hash, s.clock.now())
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return AuthResult{}, apperr.Wrap(apperr.EmailTaken, apperr.MsgEmailTaken, err)
		}
		return AuthResult{}, oops.Code("SIGNUP_CREATE_FAILED").With("operation", "signup").Wrap(err)
	}

	if err := s.notifier.SendWelcome(ctx, user, input.WelcomeURL); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("welcome mail dispatch failed")
	}

	s.log.Info().Str("user_id", user.ID).Msg("user signed up")
	return s.startSession(user)
}

// ChangePassword replaces the password of an authenticated user. Every session
// issued before the change stops being accepted; the returned one is fresh.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next, confirm string) (AuthResult, error) {
	user, err := s.users.GetByID(ctx, userID, true)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.Wrap(apperr.Unauthenticated, apperr.MsgSubjectGone, err)
		}
		return AuthResult{}, oops.Code("CHANGE_PASSWORD_LOOKUP_FAILED").With("operation", "change password").With("user_id", userID).Wrap(err)
	}

	if current == "" || !s.hasher.Verify(ctx, current, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return AuthResult{}, err
		}
		return AuthResult{}, apperr.New(apperr.InvalidCredentials, apperr.MsgWrongCurrent)
	}
	if next != confirm {
		return AuthResult{}, apperr.New(apperr.PasswordMismatch, apperr.MsgPasswordMismatch)
	}
	if err := validatePassword(next); err != nil {
		return AuthResult{}, err
	}

	hash, err := s.hasher.Hash(ctx, next)
	if err != nil {
		return AuthResult{}, oops.Code("CHANGE_PASSWORD_HASH_FAILED").With("user_id", userID).Wrap(err)
	}
	user.ReplacePassword(hash, s.clock.now())
	if err := s.users.Save(ctx, user); err != nil {
		return AuthResult{}, oops.Code("CHANGE_PASSWORD_SAVE_FAILED").With("operation", "change password").With("user_id", userID).Wrap(err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password changed")
	return s.startSession(user)
}

// Authenticate resolves a session token to its active user. Forged and expired
// tokens are logged apart but both surface as Unauthenticated.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, security.SessionInfo, error) {
	if token == "" {
		s.metrics.SessionCheck("missing")
		return models.User{}, security.SessionInfo{}, apperr.New(apperr.Unauthenticated, apperr.MsgNotLoggedIn)
	}

	info, err := s.sessions.Verify(token)
	if err != nil {
		outcome := "malformed"
		if errors.Is(err, security.ErrTokenExpired) {
			outcome = "expired"
		}
		s.metrics.SessionCheck(outcome)
		s.log.Debug().Err(err).Str("outcome", outcome).Msg("session token rejected")
		return models.User{}, security.SessionInfo{}, apperr.Wrap(apperr.Unauthenticated, apperr.MsgInvalidSession, err)
	}

	user, err := s.users.GetByID(ctx, info.SubjectID, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.metrics.SessionCheck("subject_gone")
			return models.User{}, security.SessionInfo{}, apperr.Wrap(apperr.Unauthenticated, apperr.MsgSubjectGone, err)
		}
		return models.User{}, security.SessionInfo{}, oops.Code("SESSION_LOOKUP_FAILED").With("operation", "authenticate").With("user_id", info.SubjectID).Wrap(err)
	}
	if !user.Active {
		s.metrics.SessionCheck("subject_gone")
		return models.User{}, security.SessionInfo{}, apperr.New(apperr.Unauthenticated, apperr.MsgSubjectGone)
	}

	if user.ChangedPasswordAfter(info.IssuedAt) {
		s.metrics.SessionCheck("stale")
		return models.User{}, security.SessionInfo{}, apperr.New(apperr.StaleSession, apperr.MsgStaleSession)
	}

	s.metrics.SessionCheck("accepted")
	return user, info, nil
}

// Deactivate soft-deletes the user. Later lookups no longer find it, so its
// sessions stop being accepted.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperr.Wrap(apperr.Unauthenticated, apperr.MsgSubjectGone, err)
		}
		return oops.Code("DEACTIVATE_LOOKUP_FAILED").With("user_id", userID).Wrap(err)
	}

	user.Active = false
	user.UpdatedAt = s.clock.now()
	if err := s.users.Save(ctx, user); err != nil {
		return oops.Code("DEACTIVATE_SAVE_FAILED").With("operation", "deactivate").With("user_id", userID).Wrap(err)
	}
	s.log.Info().Str("user_id", userID).Msg("user deactivated")
	return nil
}

// GetUser returns an active user by id.
func (s *AuthService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id, false)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, apperr.Wrap(apperr.NotFound, "No user found with that ID", err)
		}
		return models.User{}, oops.Code("USER_LOOKUP_FAILED").With("user_id", id).Wrap(err)
	}
	return user, nil
}

func (s *AuthService) startSession(user models.User) (AuthResult, error) {
	token, err := s.sessions.Issue(user.ID)
	if err != nil {
		return AuthResult{}, oops.Code("SESSION_ISSUE_FAILED").With("user_id", user.ID).Wrap(err)
	}
	user.PasswordHash = ""
	return AuthResult{Token: token, User: user}, nil
}
