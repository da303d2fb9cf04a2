package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost matches the cost factor user records have always been hashed with.
const DefaultCost = 10

// Hasher hashes and verifies passwords with bcrypt
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher, falling back to DefaultCost for out of range values
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the salted bcrypt hash of plain
func (h *Hasher) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored hash
func (h *Hasher) Verify(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
