package entity

import (
	"strings"
	"time"
)

// User is the aggregate root for the member domain.
// Passwords are stored as bcrypt hashes in PasswordHash.
// ProductIDs is the entitlement set: ids of products the member may access.
// ProductGrants maps a product id to the moment access was granted; the
// drip evaluator reads it, so it is written in the same statement that
// mutates ProductIDs.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FullName      string
	Phone         string
	IsAdmin       bool
	ProductIDs    []string
	ProductGrants map[string]time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// HasProduct reports whether the entitlement set contains productID.
func (u *User) HasProduct(productID string) bool {
	for _, id := range u.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// GrantedAt returns when access to productID was granted, or nil when the
// grant moment is unknown (legacy rows or no entitlement).
func (u *User) GrantedAt(productID string) *time.Time {
	if u.ProductGrants == nil {
		return nil
	}
	if t, ok := u.ProductGrants[productID]; ok {
		return &t
	}
	return nil
}

// NormalizeEmail lower-cases and trims an email address. Matching by email
// is always case-insensitive across the application.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
