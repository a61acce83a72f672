package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Hasher produces and verifies salted password digests using bcrypt. The salt
// is embedded in the digest, so two hashes of the same plaintext differ. The
// zero value uses bcrypt.DefaultCost.
//
// An unsalted digest (plain SHA over the password) is deliberately not
// offered: identical plaintexts would produce identical digests.
type Hasher struct {
	// Cost is the bcrypt work factor. Zero means bcrypt.DefaultCost.
	Cost int
}

func (h *Hasher) cost() int {
	if h == nil || h.Cost == 0 {
		return bcrypt.DefaultCost
	}
	return h.Cost
}

// Hash returns a salted digest of plaintext. The digest is opaque to callers;
// only Verify can consume it.
func (h *Hasher) Hash(plaintext string) ([]byte, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost())
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	return digest, nil
}

// Verify reports whether plaintext matches digest. Malformed or empty digests
// verify as false, never as an error.
func (h *Hasher) Verify(plaintext string, digest []byte) bool {
	return bcrypt.CompareHashAndPassword(digest, []byte(plaintext)) == nil
}
