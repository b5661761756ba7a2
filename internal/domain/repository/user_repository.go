package repository

import (
	"context"
	"errors"
	"time"

	"github.com/lowzingo/members-api/internal/domain/entity"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a write collides with a unique constraint,
// such as two accounts claiming the same email.
var ErrDuplicate = errors.New("duplicate row")

// UserRepository defines user persistence operations.
//
// GrantProduct, RevokeProduct and CreateWithGrant are the entitlement
// mutation primitives. Each one is a single atomic statement on the store:
// webhook deliveries race with each other, and a read-modify-write of the
// entitlement set would lose updates.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entity.User, error)

	// GrantProduct appends productID to the user's entitlement set and
	// records grantedAt, unless the set already contains it. Returns true
	// when the set was actually extended. A non-empty phone fills the
	// user's phone only when none is stored.
	GrantProduct(ctx context.Context, userID, productID, phone string, grantedAt time.Time) (bool, error)

	// RevokeProduct removes productID from the user's entitlement set.
	// Removing an absent member is a no-op, not an error.
	RevokeProduct(ctx context.Context, userID, productID string) error

	// CreateWithGrant inserts a new user entitled to productID. If a row
	// with the same email already exists (a concurrent delivery won the
	// insert), the existing row gains the entitlement instead and created
	// is false; the caller's generated credential is discarded in that case.
	CreateWithGrant(ctx context.Context, u *entity.User, productID string, grantedAt time.Time) (created bool, err error)
}
