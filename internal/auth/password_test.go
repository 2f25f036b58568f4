package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/livme/livme/internal/apperror"
)

// Cost 4 is the bcrypt minimum and keeps each hash in the millisecond range.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHash_ProducesBcryptHash(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("live-house-2024")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "live-house-2024" {
		t.Fatal("Hash() returned the plaintext")
	}
	if !strings.HasPrefix(hash, "$2a$") {
		t.Errorf("Hash() = %q, want bcrypt $2a$ prefix", hash)
	}
}

func TestHash_SaltsEachCall(t *testing.T) {
	ps := newTestPasswordService()

	a, _ := ps.Hash("same-password")
	b, _ := ps.Hash("same-password")
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestHash_LengthRules(t *testing.T) {
	ps := newTestPasswordService()

	cases := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"empty", "", true},
		{"five characters", "12345", true},
		{"six characters", "123456", false},
		{"six multibyte characters", "ライブ最高だ", false},
		{"72 bytes", strings.Repeat("a", 72), false},
		{"73 bytes", strings.Repeat("a", 73), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ps.Hash(tc.password)
			if tc.wantErr {
				if !errors.Is(err, apperror.ErrValidation) {
					t.Errorf("Hash() error = %v, want ErrValidation", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Hash() error = %v", err)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct-horse")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	if err := ps.Verify(hash, "correct-horse"); err != nil {
		t.Errorf("Verify(correct) error = %v", err)
	}
	if err := ps.Verify(hash, "wrong-horse"); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("Verify(wrong) error = %v, want ErrUnauthorized", err)
	}
	if err := ps.Verify(hash, ""); err == nil {
		t.Error("Verify(empty) should fail")
	}
}

func TestVerify_GarbageHash(t *testing.T) {
	ps := newTestPasswordService()

	err := ps.Verify("not-a-bcrypt-hash", "password")
	if err == nil {
		t.Fatal("Verify() should fail for a garbage hash")
	}
	if errors.Is(err, apperror.ErrUnauthorized) {
		t.Error("a malformed hash is an internal error, not a credential failure")
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  spaced  "} {
		hash, err := ps.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", pw, err)
		}
		if err := ps.Verify(hash, pw); err != nil {
			t.Errorf("Verify(%q) error = %v", pw, err)
		}
	}
}
