package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// DefaultTokenTTL is the token lifetime used when a client does not
// request one.
const DefaultTokenTTL = 600 * time.Second

// TokenGenerator generates and verifies opaque API tokens.
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator.
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// Generate creates a new raw token and its storage digest. The raw
// value is a random UUID; this is the only moment it exists server-side,
// callers must hand it to the client and keep only the hash.
func (tg *TokenGenerator) Generate() (raw string, hash string) {
	raw = uuid.NewString()
	return raw, tg.Hash(raw)
}

// Hash computes the hex SHA-256 digest of a raw token for storage and
// lookup.
func (tg *TokenGenerator) Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Verify reports whether raw is the value behind the stored token and
// the token has not expired. Expiration is checked first; a revoked
// token never verifies again regardless of the presented value.
func (tg *TokenGenerator) Verify(raw string, token *Token, now time.Time) bool {
	if token == nil || !token.Active(now) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(tg.Hash(raw)), []byte(token.TokenHash)) == 1
}
