package hashing

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"vsgifts-api/internal/config"
)

var ErrMismatch = errors.New("password does not match")

// Hasher hashes and verifies account passwords with bcrypt.
type Hasher struct {
	cost int
}

func NewHasher(cfg *config.Config) *Hasher {
	return NewHasherWithCost(cfg.Auth.BcryptCost)
}

// NewHasherWithCost clamps cost into bcrypt's accepted range.
func NewHasherWithCost(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// Compare returns ErrMismatch for a wrong password and a wrapped error for
// a malformed hash.
func (h *Hasher) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatch
	}
	if err != nil {
		return fmt.Errorf("failed to compare password: %w", err)
	}
	return nil
}

func (h *Hasher) Cost() int { return h.cost }
