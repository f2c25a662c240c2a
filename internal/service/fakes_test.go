package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"natours/api/internal/models"
	"natours/api/internal/repository"
	"natours/api/internal/security"
)

type memoryStore struct {
	mu      sync.Mutex
	users   map[string]models.User
	saves   int
	saveErr error
	// saveErrAt limits saveErr to the nth save; zero fails every save
	saveErrAt int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]models.User)}
}

func (m *memoryStore) view(u models.User, withPassword bool) models.User {
	if !withPassword {
		u.PasswordHash = ""
	}
	return u
}

func (m *memoryStore) FindByEmail(_ context.Context, email string, withPassword bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = models.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email && u.Active {
			return m.view(u, withPassword), nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memoryStore) GetByID(_ context.Context, id string, withPassword bool) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || !u.Active {
		return models.User{}, repository.ErrUserNotFound
	}
	return m.view(u, withPassword), nil
}

func (m *memoryStore) Create(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) Save(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil && (m.saveErrAt == 0 || m.saveErrAt == m.saves) {
		return m.saveErr
	}
	existing, ok := m.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	if user.PasswordHash == "" {
		user.PasswordHash = existing.PasswordHash
	}
	m.users[user.ID] = user
	return nil
}

func (m *memoryStore) FindByResetDigest(_ context.Context, digest string, now time.Time) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Active && u.ResetTokenDigest != nil && *u.ResetTokenDigest == digest &&
			u.ResetTokenExpiresAt != nil && u.ResetTokenExpiresAt.After(now) {
			return m.view(u, false), nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memoryStore) ClearExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, u := range m.users {
		if u.ResetTokenExpiresAt != nil && !u.ResetTokenExpiresAt.After(now) {
			u.ClearResetToken()
			m.users[id] = u
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) get(t *testing.T, id string) models.User {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	require.True(t, ok)
	return u
}

type sentMail struct {
	kind string
	to   string
	url  string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (n *fakeNotifier) record(kind string, user models.User, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{kind: kind, to: user.Email, url: url})
	return nil
}

func (n *fakeNotifier) SendWelcome(_ context.Context, user models.User, url string) error {
	return n.record("welcome", user, url)
}

func (n *fakeNotifier) SendPasswordReset(_ context.Context, user models.User, url string) error {
	return n.record("reset", user, url)
}

var errMailDown = errors.New("mail queue unavailable")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

var fastParams = security.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

type fixture struct {
	store    *memoryStore
	notifier *fakeNotifier
	clock    *testClock
	hasher   *security.PasswordHasher
	codec    *security.SessionCodec
	auth     *AuthService
	reset    *ResetService
}

func newFixture(t *testing.T, opts ResetOptions) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemoryStore(),
		notifier: &fakeNotifier{},
		clock:    &testClock{t: time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)},
		hasher:   security.NewPasswordHasher(fastParams, 2),
	}
	codec, err := security.NewSessionCodec(security.SessionCodecConfig{
		Secret: "service-test-secret",
		TTL:    90 * 24 * time.Hour,
		Issuer: "natours",
		Now:    f.clock.Now,
	})
	require.NoError(t, err)
	f.codec = codec
	f.auth = NewAuthService(f.store, f.hasher, f.codec, f.notifier, nil, f.clock.Now, zerolog.Nop())
	f.reset = NewResetService(f.store, f.hasher, f.codec, f.notifier, opts, nil, f.clock.Now, zerolog.Nop())
	return f
}

// seed stores an existing account the way an earlier signup would have.
func (f *fixture) seed(t *testing.T, id, email, password string, role models.Role) models.User {
	t.Helper()
	hash, err := f.hasher.Hash(context.Background(), password)
	require.NoError(t, err)
	user := models.NewUser(id, "Test "+id, email, hash, f.clock.Now())
	user.Role = role
	require.NoError(t, f.store.Create(context.Background(), user))
	return user
}
