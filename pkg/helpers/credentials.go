package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// CredentialGenerator produces one-time passwords for members created by
// the webhook reconciler. Injectable so tests can use a fixed value.
type CredentialGenerator interface {
	TempPassword() (string, error)
}

// RandomCredentials generates URL-safe passwords from crypto/rand.
type RandomCredentials struct {
	// Bytes of entropy per password. Zero means 16.
	Bytes int
}

func (g RandomCredentials) TempPassword() (string, error) {
	n := g.Bytes
	if n <= 0 {
		n = 16
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// FixedCredentials always returns the same password. Test use only.
type FixedCredentials string

func (g FixedCredentials) TempPassword() (string, error) { return string(g), nil }
