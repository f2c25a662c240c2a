package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired   = errors.New("session token expired")
	ErrTokenMalformed = errors.New("session token malformed")
)

type SessionClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// SessionInfo is what a verified token proves.
type SessionInfo struct {
	SubjectID string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type SessionCodecConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
}

// SessionCodec issues and verifies HS256 session tokens. Its key and lifetime
// are fixed at construction.
type SessionCodec struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

func NewSessionCodec(cfg SessionCodecConfig) (*SessionCodec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("session codec: secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("session codec: ttl must be positive")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &SessionCodec{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    now,
		parser: jwt.NewParser(opts...),
	}, nil
}

func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}

func (c *SessionCodec) Issue(subjectID string) (string, error) {
	if subjectID == "" {
		return "", errors.New("session codec: subject is required")
	}

	now := c.now()
	claims := SessionClaims{
		UserID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry. Expired tokens return
// ErrTokenExpired; every other failure returns ErrTokenMalformed.
func (c *SessionCodec) Verify(tokenStr string) (SessionInfo, error) {
	if tokenStr == "" {
		return SessionInfo{}, ErrTokenMalformed
	}

	claims := &SessionClaims{}
	token, err := c.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		// expiry is only reported once the signature has been checked
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionInfo{}, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return SessionInfo{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if !token.Valid || claims.IssuedAt == nil || claims.ExpiresAt == nil ||
		claims.UserID == "" || claims.UserID != claims.Subject {
		return SessionInfo{}, ErrTokenMalformed
	}

	return SessionInfo{
		SubjectID: claims.UserID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
