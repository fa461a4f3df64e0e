package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every way a session token can fail validation:
// wrong signature, wrong algorithm, expired, or not a token at all. Callers
// get one sentinel so responses cannot leak which check failed.
var ErrInvalidToken = errors.New("invalid session token")

// SessionClaims are the JWT claims carried by an extension session token.
// The email is the only identity the backend tracks; entitlements are looked
// up by it on every authenticated request.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueSessionToken mints an HS256 session token for an email that passed
// OTP verification. Returns the signed token and its expiry.
func IssueSessionToken(secret []byte, email string, ttl time.Duration) (string, time.Time, error) {
	if len(secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret is not configured")
	}

	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := &SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseSessionToken validates a bearer token and returns its claims.
func ParseSessionToken(secret []byte, tokenStr string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Email == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
