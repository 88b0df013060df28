// Package auth issues and verifies the bearer tokens that carry a caller's
// identity token. The identity itself is opaque to the ledger.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrIdentityMissing = errors.New("identity missing")
)

// HS256 で署名するトークン発行・検証
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{secret: []byte(secret), ttl: ttl}
}

// Issue は identity を sub に入れたトークンを返す
func (s *TokenService) Issue(identity string, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(identity) == "" {
		return "", time.Time{}, ErrIdentityMissing
	}
	expiresAt := now.Add(s.ttl)

	claims := jwt.RegisteredClaims{
		Subject:   identity,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse は署名と有効期限を検証して identity（sub）を返す
func (s *TokenService) Parse(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", ErrIdentityMissing
	}
	return claims.Subject, nil
}
