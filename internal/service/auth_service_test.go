package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natours/api/internal/apperr"
	"natours/api/internal/models"
)

func TestLoginScenario(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)
	ctx := context.Background()

	result, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)
	info, err := f.codec.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, info.SubjectID)
	assert.Empty(t, result.User.PasswordHash)

	_, wrongPassword := f.auth.Login(ctx, "a@x.com", "wrong")
	_, unknownEmail := f.auth.Login(ctx, "nouser@x.com", "anything")

	for _, err := range []error{wrongPassword, unknownEmail} {
		appErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.InvalidCredentials, appErr.Kind)
		assert.Equal(t, apperr.MsgInvalidCredentials, appErr.Message)
	}
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}

func TestLoginTokenVerifiesToSubject(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	accounts := map[string]string{
		"u-1": "one@x.com",
		"u-2": "Two@X.com",
		"u-3": "three@x.com",
	}
	for id, email := range accounts {
		f.seed(t, id, email, "password-"+id, models.RoleStandard)
	}

	for id, email := range accounts {
		result, err := f.auth.Login(context.Background(), "  "+email+" ", "password-"+id)
		require.NoError(t, err)
		info, err := f.codec.Verify(result.Token)
		require.NoError(t, err)
		assert.Equal(t, id, info.SubjectID)
	}
}

func TestLoginMissingCredentials(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	for _, tc := range [][2]string{{"", "secret123"}, {"a@x.com", ""}, {"  ", ""}} {
		_, err := f.auth.Login(context.Background(), tc[0], tc[1])
		assert.True(t, apperr.IsKind(err, apperr.MissingCredentials))
	}
}

func TestLoginCancelledContext(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.auth.Login(ctx, "a@x.com", "secret123")
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperr.IsOperational(err))
}

func TestChangePasswordInvalidatesEarlierSessions(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)
	ctx := context.Background()

	before, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	f.clock.Advance(10 * time.Second)
	after, err := f.auth.ChangePassword(ctx, user.ID, "secret123", "newSecret456", "newSecret456")
	require.NoError(t, err)

	stored := f.store.get(t, user.ID)
	require.NotNil(t, stored.PasswordChangedAt)
	assert.Equal(t, f.clock.Now().Add(-time.Second), *stored.PasswordChangedAt)

	_, _, err = f.auth.Authenticate(ctx, before.Token)
	assert.True(t, apperr.IsKind(err, apperr.StaleSession))

	got, _, err := f.auth.Authenticate(ctx, after.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = f.auth.Login(ctx, "a@x.com", "secret123")
	assert.True(t, apperr.IsKind(err, apperr.InvalidCredentials))
	_, err = f.auth.Login(ctx, "a@x.com", "newSecret456")
	assert.NoError(t, err)
}

func TestChangePasswordSameSecondKeepsSession(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)
	ctx := context.Background()

	current, err := f.auth.Login(ctx, "a@x.com", "secret123")
	require.NoError(t, err)

	_, err = f.auth.ChangePassword(ctx, user.ID, "secret123", "newSecret456", "newSecret456")
	require.NoError(t, err)

	_, _, err = f.auth.Authenticate(ctx, current.Token)
	assert.NoError(t, err)
}

func TestChangePasswordErrors(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)
	ctx := context.Background()

	tests := []struct {
		name                   string
		current, next, confirm string
		want                   apperr.Kind
	}{
		{name: "wrong current", current: "nope", next: "newSecret456", confirm: "newSecret456", want: apperr.InvalidCredentials},
		{name: "missing current", current: "", next: "newSecret456", confirm: "newSecret456", want: apperr.InvalidCredentials},
		{name: "mismatch", current: "secret123", next: "newSecret456", confirm: "newSecret457", want: apperr.PasswordMismatch},
		{name: "too short", current: "secret123", next: "short", confirm: "short", want: apperr.InvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.ChangePassword(ctx, user.ID, tt.current, tt.next, tt.confirm)
			kind, ok := apperr.KindOf(err)
			require.True(t, ok, "expected operational error, got %v", err)
			assert.Equal(t, tt.want, kind)
		})
	}
	assert.Nil(t, f.store.get(t, user.ID).PasswordChangedAt)
}

func TestAuthenticateRejections(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)
	ctx := context.Background()

	valid, err := f.codec.Issue(user.ID)
	require.NoError(t, err)
	ghost, err := f.codec.Issue("u-missing")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		msg   string
	}{
		{name: "no token", token: "", msg: apperr.MsgNotLoggedIn},
		{name: "garbage", token: "abc.def.ghi", msg: apperr.MsgInvalidSession},
		{name: "tampered", token: valid + "x", msg: apperr.MsgInvalidSession},
		{name: "unknown subject", token: ghost, msg: apperr.MsgSubjectGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.auth.Authenticate(ctx, tt.token)
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.Unauthenticated, appErr.Kind)
			assert.Equal(t, tt.msg, appErr.Message)
		})
	}
}

func TestAuthenticateExpiredLooksLikeForged(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)

	token, err := f.codec.Issue(user.ID)
	require.NoError(t, err)
	f.clock.Advance(91 * 24 * time.Hour)

	_, _, expired := f.auth.Authenticate(context.Background(), token)
	_, _, forged := f.auth.Authenticate(context.Background(), "forged.token.value")

	expiredErr, ok := apperr.As(expired)
	require.True(t, ok)
	forgedErr, ok := apperr.As(forged)
	require.True(t, ok)
	assert.Equal(t, forgedErr.Kind, expiredErr.Kind)
	assert.Equal(t, forgedErr.Message, expiredErr.Message)
}

func TestSignup(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	ctx := context.Background()

	result, err := f.auth.Signup(ctx, SignupInput{
		Name:            " Ada Lovelace ",
		Email:           "Ada@X.com",
		Password:        "secret123",
		PasswordConfirm: "secret123",
		WelcomeURL:      "http://localhost/me",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStandard, result.User.Role)
	assert.Equal(t, "ada@x.com", result.User.Email)
	assert.Equal(t, "Ada Lovelace", result.User.Name)
	assert.Nil(t, result.User.PasswordChangedAt)
	assert.Empty(t, result.User.PasswordHash)

	info, err := f.codec.Verify(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, info.SubjectID)

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, sentMail{kind: "welcome", to: "ada@x.com", url: "http://localhost/me"}, f.notifier.sent[0])

	_, err = f.auth.Login(ctx, "ada@x.com", "secret123")
	assert.NoError(t, err)

	_, err = f.auth.Signup(ctx, SignupInput{Name: "Other", Email: "ada@x.com", Password: "secret123", PasswordConfirm: "secret123"})
	assert.True(t, apperr.IsKind(err, apperr.EmailTaken))
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t, ResetOptions{})

	tests := []struct {
		name  string
		input SignupInput
		want  apperr.Kind
	}{
		{name: "no name", input: SignupInput{Email: "a@x.com", Password: "secret123", PasswordConfirm: "secret123"}, want: apperr.InvalidInput},
		{name: "bad email", input: SignupInput{Name: "A", Email: "not-an-email", Password: "secret123", PasswordConfirm: "secret123"}, want: apperr.InvalidInput},
		{name: "short password", input: SignupInput{Name: "A", Email: "a@x.com", Password: "short", PasswordConfirm: "short"}, want: apperr.InvalidInput},
		{name: "mismatch", input: SignupInput{Name: "A", Email: "a@x.com", Password: "secret123", PasswordConfirm: "secret124"}, want: apperr.PasswordMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Signup(context.Background(), tt.input)
			assert.True(t, apperr.IsKind(err, tt.want), "got %v", err)
		})
	}
	assert.Empty(t, f.store.users)
}

func TestSignupSurvivesWelcomeFailure(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	f.notifier.err = errMailDown

	result, err := f.auth.Signup(context.Background(), SignupInput{
		Name: "Ada", Email: "a@x.com", Password: "secret123", PasswordConfirm: "secret123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Len(t, f.store.users, 1)
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t, ResetOptions{})
	user := f.seed(t, "u-a", "a@x.com", "secret123", models.RoleStandard)
	ctx := context.Background()

	token, err := f.codec.Issue(user.ID)
	require.NoError(t, err)

	require.NoError(t, f.auth.Deactivate(ctx, user.ID))
	assert.False(t, f.store.get(t, user.ID).Active)
	assert.NotEmpty(t, f.store.get(t, user.ID).PasswordHash)

	_, _, err = f.auth.Authenticate(ctx, token)
	assert.True(t, apperr.IsKind(err, apperr.Unauthenticated))

	_, err = f.auth.Login(ctx, "a@x.com", "secret123")
	assert.True(t, apperr.IsKind(err, apperr.InvalidCredentials))

	_, err = f.auth.GetUser(ctx, user.ID)
	assert.True(t, apperr.IsKind(err, apperr.NotFound))
}
