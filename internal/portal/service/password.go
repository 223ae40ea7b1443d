package service

import (
	"crypto/rand"
	"math/big"
	"unicode"

	"github.com/pointerhq/portal/internal/portal/idp"
)

const (
	minPasswordLength       = 8
	generatedPasswordLength = 10
)

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

// PasswordPolicy validates caller-supplied passwords and generates first-access
// ones. It mirrors the realm's password policy so local and remote validation
// agree.
type PasswordPolicy struct{}

// Validate enforces the minimum bar: length plus at least one letter and one
// digit.
func (PasswordPolicy) Validate(password string) error {
	if len(password) < minPasswordLength {
		return idp.ErrWeakPassword
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return idp.ErrWeakPassword
	}
	return nil
}

// Generate produces a random first-access password. The alphabet omits the
// look-alike characters (0/O, 1/l/I) since users retype these from an email.
func (PasswordPolicy) Generate() (string, error) {
	for {
		buf := make([]byte, generatedPasswordLength)
		for i := range buf {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordAlphabet))))
			if err != nil {
				return "", err
			}
			buf[i] = passwordAlphabet[n.Int64()]
		}
		password := string(buf)

		// Redraw in the unlikely case the draw misses a letter or digit.
		if (PasswordPolicy{}).Validate(password) == nil {
			return password, nil
		}
	}
}
