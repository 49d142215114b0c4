package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ConfirmationHashCost is the bcrypt cost used for stored confirmation codes.
var ConfirmationHashCost = bcrypt.DefaultCost

// ConfirmationCode is a one-time signup code. Code is mailed to the user,
// only Hash and ExpiresAt are persisted.
type ConfirmationCode struct {
	Code      string
	Hash      string
	ExpiresAt time.Time
}

// NewConfirmationCode issues a random code valid for ttl from now.
func NewConfirmationCode(now time.Time, ttl time.Duration) (ConfirmationCode, error) {
	code := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(code), ConfirmationHashCost)
	if err != nil {
		return ConfirmationCode{}, fmt.Errorf("hash confirmation code: %w", err)
	}
	return ConfirmationCode{
		Code:      code,
		Hash:      string(hash),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// CheckConfirmationCode reports whether code matches the stored hash and has not expired.
func CheckConfirmationCode(hash string, expiresAt *time.Time, code string, now time.Time) bool {
	if hash == "" || code == "" {
		return false
	}
	if expiresAt == nil || !now.Before(*expiresAt) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code)) == nil
}
