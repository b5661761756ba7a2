package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/internal/domain/entity"
	repo "github.com/lowzingo/members-api/internal/domain/repository"
	"github.com/lowzingo/members-api/pkg/helpers"
)

// Minimal in-memory repositories; only the paths the webhook routes touch
// are exercised.

type memUserRepo struct {
	users map[string]*entity.User
}

func (r *memUserRepo) Create(_ context.Context, u *entity.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	r.users[u.ID] = u
	return nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repo.ErrNotFound
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memUserRepo) Update(_ context.Context, u *entity.User) error { return nil }
func (r *memUserRepo) Delete(_ context.Context, _ string) error       { return nil }
func (r *memUserRepo) List(_ context.Context) ([]*entity.User, error) { return nil, nil }

func (r *memUserRepo) GrantProduct(_ context.Context, userID, productID, phone string, grantedAt time.Time) (bool, error) {
	u := r.users[userID]
	if u.HasProduct(productID) {
		return false, nil
	}
	u.ProductIDs = append(u.ProductIDs, productID)
	if u.ProductGrants == nil {
		u.ProductGrants = map[string]time.Time{}
	}
	u.ProductGrants[productID] = grantedAt
	return true, nil
}

func (r *memUserRepo) RevokeProduct(_ context.Context, userID, productID string) error {
	u := r.users[userID]
	kept := u.ProductIDs[:0]
	for _, pid := range u.ProductIDs {
		if pid != productID {
			kept = append(kept, pid)
		}
	}
	u.ProductIDs = kept
	return nil
}

func (r *memUserRepo) CreateWithGrant(ctx context.Context, u *entity.User, productID string, grantedAt time.Time) (bool, error) {
	if existing, err := r.GetByEmail(ctx, u.Email); err == nil {
		_, gErr := r.GrantProduct(ctx, existing.ID, productID, u.Phone, grantedAt)
		*u = *existing
		return false, gErr
	}
	u.ProductIDs = []string{productID}
	u.ProductGrants = map[string]time.Time{productID: grantedAt}
	return true, r.Create(ctx, u)
}

type memProductRepo struct {
	products map[string]*entity.Product
}

func (r *memProductRepo) Create(_ context.Context, _ *entity.Product) error { return nil }

func (r *memProductRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	if p, ok := r.products[id]; ok {
		return p, nil
	}
	return nil, repo.ErrNotFound
}

func (r *memProductRepo) GetByWebhookSecret(_ context.Context, secret string) (*entity.Product, error) {
	for _, p := range r.products {
		if p.WebhookSecret == secret {
			return p, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (r *memProductRepo) List(_ context.Context) ([]*entity.Product, error)  { return nil, nil }
func (r *memProductRepo) Update(_ context.Context, _ *entity.Product) error  { return nil }
func (r *memProductRepo) Delete(_ context.Context, _ string) error           { return nil }
func (r *memProductRepo) Duplicate(_ context.Context, _, _ string) (*entity.Product, error) {
	return nil, repo.ErrNotFound
}
func (r *memProductRepo) CreateModule(_ context.Context, _ *entity.Module) error { return nil }
func (r *memProductRepo) UpdateModule(_ context.Context, _ *entity.Module) error { return nil }
func (r *memProductRepo) DeleteModule(_ context.Context, _ string) error         { return nil }
func (r *memProductRepo) CreateLesson(_ context.Context, _ *entity.Lesson) error { return nil }
func (r *memProductRepo) UpdateLesson(_ context.Context, _ *entity.Lesson) error { return nil }
func (r *memProductRepo) DeleteLesson(_ context.Context, _ string) error         { return nil }

func newWebhookTestRouter(t *testing.T) (*gin.Engine, *memUserRepo, *entity.Product) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	product := &entity.Product{
		ID:                  uuid.NewString(),
		Name:                "Curso",
		WebhookSecret:       "sec-42",
		IsActive:            true,
		EnabledPlatforms:    []string{entity.PlatformCartPanda, entity.PlatformHotmart},
		EnableAccessRemoval: true,
	}
	users := &memUserRepo{users: map[string]*entity.User{}}
	products := &memProductRepo{products: map[string]*entity.Product{product.ID: product}}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := application.NewWebhookService(users, products, helpers.FixedCredentials("tmp"), nil, logger, nil, "", "https://example.com/login")
	h := NewWebhookHandler(svc, logger)

	r := gin.New()
	r.POST("/api/webhook/cartpanda", h.ReceiveGeneric)
	r.POST("/api/webhook/:secret", h.Receive)
	return r, users, product
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestWebhookCreatesUser(t *testing.T) {
	r, users, product := newWebhookTestRouter(t)

	w := postJSON(r, "/api/webhook/sec-42", `{"customer_email":"A@X.com ","customer_name":"Jo","status":"approved"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "user_created", body["action"])
	assert.Equal(t, "a@x.com", body["user_email"])

	u, err := users.GetByEmail(context.Background(), "a@x.com")
	require.NoError(t, err)
	assert.True(t, u.HasProduct(product.ID))
}

func TestWebhookUnknownSecretIs404(t *testing.T) {
	r, _, _ := newWebhookTestRouter(t)

	w := postJSON(r, "/api/webhook/nope", `{"customer_email":"a@x.com","customer_name":"Jo","status":"approved"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookUnrecognizedShapeIs400(t *testing.T) {
	r, _, _ := newWebhookTestRouter(t)

	w := postJSON(r, "/api/webhook/sec-42", `{"unexpected":"shape"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookDisabledPlatformIs403(t *testing.T) {
	r, _, _ := newWebhookTestRouter(t)

	// Yampi shape while only cartpanda and hotmart are enabled
	w := postJSON(r, "/api/webhook/sec-42", `{"email":"y@x.com","name":"Y","transaction_status":"paid"}`)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestWebhookMissingNameIs400(t *testing.T) {
	r, _, _ := newWebhookTestRouter(t)

	w := postJSON(r, "/api/webhook/sec-42", `{"customer_email":"a@x.com","status":"approved"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookRevokeFlow(t *testing.T) {
	r, users, product := newWebhookTestRouter(t)
	member := &entity.User{
		Email:         "m@x.com",
		FullName:      "Member",
		ProductIDs:    []string{product.ID},
		ProductGrants: map[string]time.Time{product.ID: time.Now()},
	}
	require.NoError(t, users.Create(context.Background(), member))

	w := postJSON(r, "/api/webhook/sec-42", `{"customer_email":"m@x.com","customer_name":"Member","status":"refunded"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "access_removed", body["action"])
	assert.False(t, member.HasProduct(product.ID))
}

func TestWebhookGenericEndpointNeverCreates(t *testing.T) {
	r, _, product := newWebhookTestRouter(t)

	w := postJSON(r, "/api/webhook/cartpanda", `{"customer_email":"new@x.com","product_id":"`+product.ID+`","status":"paid"}`)

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "user_not_found", body["action"])
}

func TestWebhookHotmartShape(t *testing.T) {
	r, users, product := newWebhookTestRouter(t)

	w := postJSON(r, "/api/webhook/sec-42", `{"event":"PURCHASE_APPROVED","data":{"buyer":{"email":"hm@x.com","name":"Comprador"}}}`)

	require.Equal(t, http.StatusOK, w.Code)
	u, err := users.GetByEmail(context.Background(), "hm@x.com")
	require.NoError(t, err)
	assert.True(t, u.HasProduct(product.ID))
}
