package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrPinMismatch = errors.New("PIN does not match")

// PinHasher hashes and verifies PINs with bcrypt. PINs are never stored or logged in plaintext.
type PinHasher struct {
	cost int
}

func NewPinHasher(cost int) *PinHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PinHasher{cost: cost}
}

func (h *PinHasher) Hash(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(hash), nil
}

// Compare returns ErrPinMismatch for a wrong PIN and a wrapped error for a malformed hash.
func (h *PinHasher) Compare(hash, pin string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPinMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to verify PIN: %w", err)
	}
	return nil
}
