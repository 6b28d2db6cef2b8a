package domain

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// SaltSize is the number of random bytes in a credential salt.
	SaltSize = 16
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8

	credentialSeparator = ":"
)

// Credential is a stored password in the form "salt:digest", where salt is
// hex-encoded random bytes and digest is hex(SHA-256(plaintext ++ salt)).
type Credential string

// NewCredential hashes plaintext with a fresh salt.
// It only fails if the system entropy source fails.
func NewCredential(plaintext string) (Credential, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("read salt: %w", err)
	}

	saltHex := hex.EncodeToString(salt)

	return Credential(saltHex + credentialSeparator + digest(plaintext, saltHex)), nil
}

// ParseCredential checks that s has the salt:digest shape.
func ParseCredential(s string) (Credential, error) {
	if _, _, ok := Credential(s).split(); !ok {
		return "", ErrInvalidCredential
	}

	return Credential(s), nil
}

// Verify reports whether plaintext matches the credential.
// Malformed credentials never verify.
func (c Credential) Verify(plaintext string) bool {
	salt, want, ok := c.split()
	if !ok {
		return false
	}

	got := digest(plaintext, salt)

	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// String hides the credential so it never ends up in logs by accident.
func (c Credential) String() string {
	return "[redacted]"
}

func (c Credential) split() (salt, sum string, ok bool) {
	salt, sum, ok = strings.Cut(string(c), credentialSeparator)
	if !ok || salt == "" || sum == "" {
		return "", "", false
	}

	return salt, sum, true
}

func digest(plaintext, salt string) string {
	sum := sha256.Sum256([]byte(plaintext + salt))

	return hex.EncodeToString(sum[:])
}

// ValidatePassword reports whether password is at least MinPasswordLength
// characters long and contains an uppercase letter, a lowercase letter and a digit.
func ValidatePassword(password string) bool {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return false
	}

	var upper, lower, digit bool

	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	return upper && lower && digit
}
