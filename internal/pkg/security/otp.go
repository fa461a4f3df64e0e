package security

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/focusgate/focusgate-server/internal/pkg/cache"
	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

const otpKeyPrefix = "otp:login:"

// CodeStore holds issued sign-in codes with a TTL and destroys them on first
// read. The redis cache implements this; tests use an in-memory map.
type CodeStore interface {
	Set(key string, value interface{}, expiration time.Duration) error
	GetDel(key string) (string, error)
}

// OTPService issues and verifies one-time sign-in codes. Codes are stored
// bcrypt-hashed, so a cache dump never reveals a usable code, and fetched
// with GetDel: the first verification attempt consumes the code whether it
// matches or not.
type OTPService struct {
	store CodeStore
	ttl   time.Duration
}

func NewOTPService(store CodeStore, ttl time.Duration) *OTPService {
	return &OTPService{store: store, ttl: ttl}
}

// NewOTPServiceFromEnv builds the production OTP service on the shared redis
// cache. OTP_TTL bounds how long a mailed code stays redeemable.
func NewOTPServiceFromEnv() *OTPService {
	return NewOTPService(redisCodeStore{}, env.GetEnvDuration("OTP_TTL", 10*time.Minute))
}

// Issue creates a fresh 6-digit code for the email and stores its hash.
// Re-issuing replaces any previous code for the same address.
func (s *OTPService) Issue(email string) (string, error) {
	normalized := normalizeKeyEmail(email)
	if normalized == "" {
		return "", errors.New("email is required")
	}

	code, err := GenerateNumericCode(6)
	if err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := s.store.Set(otpKeyPrefix+normalized, string(hash), s.ttl); err != nil {
		return "", err
	}
	return code, nil
}

// Verify redeems a code. Missing, expired, or mismatched codes all report
// (false, nil); the stored code is gone after this call either way.
func (s *OTPService) Verify(email, code string) (bool, error) {
	normalized := normalizeKeyEmail(email)
	if normalized == "" || strings.TrimSpace(code) == "" {
		return false, nil
	}

	hash, err := s.store.GetDel(otpKeyPrefix + normalized)
	if err != nil {
		return false, err
	}
	if hash == "" {
		return false, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(strings.TrimSpace(code))) != nil {
		return false, nil
	}
	return true, nil
}

// GenerateNumericCode returns a uniformly random code of the given number of
// decimal digits, left-padded with zeros.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 {
		return "", errors.New("digits must be positive")
	}
	bound := big.NewInt(1)
	for i := 0; i < digits; i++ {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", err
	}
	out := n.String()
	for len(out) < digits {
		out = "0" + out
	}
	return out, nil
}

func normalizeKeyEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// redisCodeStore adapts the shared cache to the CodeStore contract; a missing
// key reads as empty instead of surfacing redis.Nil.
type redisCodeStore struct{}

func (redisCodeStore) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

func (redisCodeStore) GetDel(key string) (string, error) {
	v, err := cache.GetDel(key)
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}
