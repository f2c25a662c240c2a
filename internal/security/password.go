package security

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/sync/semaphore"
)

type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var DefaultArgon2Params = Argon2Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

var ErrEmptyPassword = errors.New("password cannot be empty")

// PasswordHasher hashes and verifies passwords with argon2id. At most
// concurrency hashes run at once; callers beyond that wait on ctx.
type PasswordHasher struct {
	params Argon2Params
	sem    *semaphore.Weighted
}

func NewPasswordHasher(params Argon2Params, concurrency int) *PasswordHasher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &PasswordHasher{
		params: params,
		sem:    semaphore.NewWeighted(int64(concurrency)),
	}
}

func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("PASSWORD_SALT_FAILED").Wrap(err)
	}

	if err := ctx.Err(); err != nil {
		return "", oops.Code("PASSWORD_HASH_CANCELLED").Wrap(err)
	}
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", oops.Code("PASSWORD_HASH_CANCELLED").Wrap(err)
	}
	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)
	h.sem.Release(1)

	return encodeHash(h.params, salt, key), nil
}

// Verify reports whether password matches encodedHash. A malformed hash or a
// cancelled context yields false.
func (h *PasswordHasher) Verify(ctx context.Context, password string, encodedHash string) bool {
	if ctx.Err() != nil {
		return false
	}
	params, salt, expected, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Threads, params.KeyLen)
	h.sem.Release(1)

	return subtle.ConstantTimeCompare(computed, expected) == 1
}

// DummyHash is a well-formed digest that matches no password. Login verifies
// against it for unknown emails so both paths cost the same.
func (h *PasswordHasher) DummyHash() string {
	salt := make([]byte, h.params.SaltLen)
	key := make([]byte, h.params.KeyLen)
	return encodeHash(h.params, salt, key)
}

func encodeHash(params Argon2Params, salt, key []byte) string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.Memory,
		params.Time,
		params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
}

func decodeHash(encodedHash string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Argon2Params{}, nil, nil, errors.New("invalid hash format")
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Argon2Params{}, nil, nil, errors.New("unsupported argon2 version")
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("parse params: %w", err)
	}
	if memory == 0 || time == 0 || threads == 0 || threads > 255 {
		return Argon2Params{}, nil, nil, errors.New("invalid argon2 params")
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("decode salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("decode hash: %w", err)
	}
	if len(key) == 0 || len(key) > 1024 {
		return Argon2Params{}, nil, nil, errors.New("invalid hash length")
	}

	return Argon2Params{
		Time:    time,
		Memory:  memory,
		Threads: uint8(threads),
		KeyLen:  uint32(len(key)),
		SaltLen: uint32(len(salt)),
	}, salt, key, nil
}
