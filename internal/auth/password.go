package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8
	// bcrypt ignores input past 72 bytes.
	MaxPasswordLength = 72
)

// ErrWeakPassword is returned for passwords outside the accepted length range.
var ErrWeakPassword = fmt.Errorf("password must be %d to %d bytes", MinPasswordLength, MaxPasswordLength)

// Compared against when the user does not exist, so a miss costs as much as
// a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("placeholder-password"), bcrypt.DefaultCost)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength || len(password) > MaxPasswordLength {
		return "", ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports ErrInvalidCredential unless password matches hash.
// An empty hash never matches.
func CheckPassword(hash, password string) error {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredential
		}
		return fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	return nil
}
