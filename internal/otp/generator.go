// Package otp issues and compares numeric one-time codes.
package otp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// Generator produces a fresh code on each call.
type Generator interface {
	Generate() (string, error)
}

// NumericGenerator yields codes of a fixed number of digits without a
// leading zero, e.g. 100000-999999 for six digits.
type NumericGenerator struct {
	low  *big.Int
	span *big.Int
}

func NewNumericGenerator(digits int) *NumericGenerator {
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	return &NumericGenerator{low: low, span: span}
}

func (g *NumericGenerator) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, g.span)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return n.Add(n, g.low).String(), nil
}

// Equal compares a submitted code against the stored one in constant time.
func Equal(submitted, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}
