package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/samber/oops"
)

// ResetTokenBytes is 256 bits of entropy, hex encoded to 64 characters.
const ResetTokenBytes = 32

type ResetToken struct {
	Plaintext string
	Digest    string
	ExpiresAt time.Time
}

// GenerateResetToken returns a one-time token for out-of-band delivery and the
// digest to persist. The plaintext must not be stored or logged.
func GenerateResetToken(now time.Time, ttl time.Duration) (ResetToken, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return ResetToken{}, oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}

	plaintext := hex.EncodeToString(buf)
	return ResetToken{
		Plaintext: plaintext,
		Digest:    HashResetToken(plaintext),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// HashResetToken is a fast SHA-256 digest. The token already carries full
// entropy, so no work factor is needed.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
