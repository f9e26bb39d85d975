// Package session mints and verifies the bearer tokens handed out after a
// successful OTP verification or login.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"vsgifts-api/internal/config"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims binds a token to one account id.
type Claims struct {
	jwt.RegisteredClaims
	AccountID string `json:"id"`
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(cfg *config.Config) *Issuer {
	return NewIssuerWithSecret(cfg.JWT.Secret, cfg.JWT.TTL)
}

func NewIssuerWithSecret(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs an HS256 token for accountID valid for the issuer's TTL.
func (i *Issuer) Issue(accountID string) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		AccountID: accountID,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the bound account id.
func (i *Issuer) Verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.AccountID == "" {
		return "", fmt.Errorf("%w: missing id claim", ErrInvalidToken)
	}
	return claims.AccountID, nil
}
