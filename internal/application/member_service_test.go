package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowzingo/members-api/internal/domain/entity"
	repo "github.com/lowzingo/members-api/internal/domain/repository"
	"github.com/lowzingo/members-api/pkg/helpers"
)

func newTestMemberService(users *fakeUserRepo) *MemberService {
	jwt := helpers.NewJWTManager("test-access", "test-refresh", time.Hour, 24*time.Hour)
	return NewMemberService(users, jwt, nil, quietLogger(), nil, "")
}

func seedMember(t *testing.T, users *fakeUserRepo, email, password string) *entity.User {
	t.Helper()
	hash, err := helpers.HashPassword(password)
	require.NoError(t, err)
	u := &entity.User{Email: email, PasswordHash: hash, FullName: "Membro Teste"}
	require.NoError(t, users.Create(context.Background(), u))
	return u
}

func TestAuthenticate(t *testing.T) {
	users := newFakeUserRepo()
	seedMember(t, users, "m@x.com", "correct-horse")
	svc := newTestMemberService(users)

	u, err := svc.Authenticate(context.Background(), "m@x.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "m@x.com", u.Email)

	_, err = svc.Authenticate(context.Background(), "m@x.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ghost@x.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestMemberService(users)

	u, err := svc.Register(context.Background(), " New@X.com ", "password1", "Novo Membro", "")
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", u.Email)
	assert.Empty(t, u.ProductIDs)

	_, err = svc.Register(context.Background(), "new@x.com", "password2", "Outro", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

// dupUserRepo reports a unique-constraint collision on every write,
// standing in for a concurrent registration that won the insert.
type dupUserRepo struct {
	*fakeUserRepo
}

func (r *dupUserRepo) Create(_ context.Context, _ *entity.User) error { return repo.ErrDuplicate }
func (r *dupUserRepo) Update(_ context.Context, _ *entity.User) error { return repo.ErrDuplicate }

func TestRegisterMapsConstraintCollisionToEmailTaken(t *testing.T) {
	svc := newTestMemberService(newFakeUserRepo())
	svc.Users = &dupUserRepo{fakeUserRepo: newFakeUserRepo()}

	_, err := svc.Register(context.Background(), "raced@x.com", "password1", "Corredor", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateProfileEmailCollisionIsEmailTaken(t *testing.T) {
	inner := newFakeUserRepo()
	u := seedMember(t, inner, "m@x.com", "pw")
	svc := newTestMemberService(inner)
	svc.Users = &dupUserRepo{fakeUserRepo: inner}

	_, err := svc.UpdateProfile(context.Background(), u.ID, UpdateProfileInput{Email: "taken@x.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestUpdateProfilePasswordChangeRequiresCurrent(t *testing.T) {
	users := newFakeUserRepo()
	u := seedMember(t, users, "m@x.com", "old-password")
	svc := newTestMemberService(users)

	_, err := svc.UpdateProfile(context.Background(), u.ID, UpdateProfileInput{
		CurrentPassword: "guess",
		NewPassword:     "new-password",
	})
	assert.ErrorIs(t, err, ErrWrongPassword)

	updated, err := svc.UpdateProfile(context.Background(), u.ID, UpdateProfileInput{
		CurrentPassword: "old-password",
		NewPassword:     "new-password",
	})
	require.NoError(t, err)
	assert.True(t, helpers.CompareHashAndPassword(updated.PasswordHash, "new-password"))
}

func TestUpdateMemberPreservesExistingGrantTimestamps(t *testing.T) {
	users := newFakeUserRepo()
	svc := newTestMemberService(users)

	oldProduct := uuid.NewString()
	newProduct := uuid.NewString()
	droppedProduct := uuid.NewString()
	oldGrant := time.Now().AddDate(0, 0, -30)

	u := &entity.User{
		Email:         "m@x.com",
		PasswordHash:  "h",
		FullName:      "Membro",
		ProductIDs:    []string{oldProduct, droppedProduct},
		ProductGrants: map[string]time.Time{oldProduct: oldGrant, droppedProduct: oldGrant},
	}
	require.NoError(t, users.Create(context.Background(), u))

	updated, err := svc.UpdateMember(context.Background(), u.ID, AdminMemberInput{
		Email:      "m@x.com",
		FullName:   "Membro",
		ProductIDs: []string{oldProduct, newProduct},
	})
	require.NoError(t, err)

	// kept product keeps its original grant date, so drip does not reset
	require.NotNil(t, updated.GrantedAt(oldProduct))
	assert.True(t, updated.GrantedAt(oldProduct).Equal(oldGrant))

	// new product gets a fresh grant
	require.NotNil(t, updated.GrantedAt(newProduct))
	assert.True(t, updated.GrantedAt(newProduct).After(oldGrant))

	// dropped product loses entitlement and grant
	assert.False(t, updated.HasProduct(droppedProduct))
	assert.Nil(t, updated.GrantedAt(droppedProduct))
}

func TestIssueAndRefreshTokens(t *testing.T) {
	users := newFakeUserRepo()
	u := seedMember(t, users, "m@x.com", "pw")
	svc := newTestMemberService(users)

	pair, err := svc.IssueTokens(context.Background(), u)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.JWT.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)

	newPair, uid, err := svc.Refresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)
	assert.NotEmpty(t, newPair.AccessToken)

	_, _, err = svc.Refresh(context.Background(), "garbage-token")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
