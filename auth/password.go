package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Password hashing schemes. The legacy scheme is hex(SHA-256(plaintext
// + secret)) with no per-user salt, kept for compatibility with
// existing stored hashes: two users with the same password produce the
// same hash. The bcrypt scheme is the opt-in upgrade; its hashes are
// self-describing ("$2a$..." prefix), so VerifyPassword handles a mixed
// store and the migration needs no flag day.
const (
	SchemeSHA256 = "sha256"
	SchemeBcrypt = "bcrypt"
)

// Hasher hashes and verifies user passwords under a process-wide
// secret.
type Hasher struct {
	secret string
	scheme string
}

// NewHasher builds a Hasher. An unknown scheme falls back to the
// legacy one.
func NewHasher(secret, scheme string) *Hasher {
	if scheme != SchemeBcrypt {
		scheme = SchemeSHA256
	}
	return &Hasher{secret: secret, scheme: scheme}
}

// HashPassword hashes a plaintext password under the configured scheme.
func (h *Hasher) HashPassword(plaintext string) (string, error) {
	if h.scheme == SchemeBcrypt {
		hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
		if err != nil {
			return "", err
		}
		return string(hashed), nil
	}
	return h.legacyHash(plaintext), nil
}

// VerifyPassword reports whether plaintext matches hash. The hash's
// own format decides which scheme applies.
func (h *Hasher) VerifyPassword(plaintext, hash string) bool {
	if strings.HasPrefix(hash, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
	}
	computed := h.legacyHash(plaintext)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}

func (h *Hasher) legacyHash(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext + h.secret))
	return hex.EncodeToString(sum[:])
}
