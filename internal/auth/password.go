package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/livme/livme/internal/apperror"
)

const (
	defaultCost = 12

	// MinPasswordLength matches the hosted auth backend the app grew up on.
	MinPasswordLength = 6
	// bcrypt ignores everything past 72 bytes, so longer input is refused
	// instead of being silently truncated.
	maxPasswordBytes = 72
)

// PasswordService hashes and verifies passwords with bcrypt.
// The salt is embedded in the hash, so only the hash is stored.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest uses a low cost so tests stay fast.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash checks the length rules and returns the bcrypt hash.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return "", apperror.ValidationFailed("password", "パスワードは6文字以上で入力してください")
	}
	if len(plaintext) > maxPasswordBytes {
		return "", apperror.ValidationFailed("password", "パスワードが長すぎます")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash. A mismatch is
// apperror.ErrUnauthorized.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return apperror.Unauthorized("auth: invalid password")
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}
