package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/internal/domain/entity"
)

func newProductTestRouter(t *testing.T) (*gin.Engine, *entity.Product) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	product := &entity.Product{
		ID:               "prod-1",
		Name:             "Curso",
		WebhookSecret:    "sec-99",
		IsActive:         true,
		EnabledPlatforms: []string{entity.PlatformHotmart},
		UnlockAfterDays:  7,
		Modules: []entity.Module{{
			ID:              "mod-1",
			ProductID:       "prod-1",
			Name:            "Fundamentos",
			UnlockAfterDays: -1,
			Lessons: []entity.Lesson{{
				ID:       "les-1",
				ModuleID: "mod-1",
				Name:     "Boas-vindas",
			}},
		}},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	products := &memProductRepo{products: map[string]*entity.Product{product.ID: product}}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := NewProductHandler(application.NewCatalogService(products, logger), logger)
	r := gin.New()
	r.GET("/api/admin/products/:id", h.Get)
	return r, product
}

func TestProductResponseUsesSnakeCaseKeys(t *testing.T) {
	r, product := newProductTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/products/"+product.ID, nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)

	assert.Equal(t, product.ID, data["id"])
	assert.Equal(t, "sec-99", data["webhook_secret"])
	assert.Equal(t, float64(7), data["unlock_after_days"])
	assert.NotContains(t, data, "ID")
	assert.NotContains(t, data, "WebhookSecret")

	modules, ok := data["modules"].([]any)
	require.True(t, ok)
	require.Len(t, modules, 1)
	mod := modules[0].(map[string]any)
	assert.Equal(t, "Fundamentos", mod["name"])
	assert.Equal(t, float64(-1), mod["unlock_after_days"])

	lessons, ok := mod["lessons"].([]any)
	require.True(t, ok)
	require.Len(t, lessons, 1)
	les := lessons[0].(map[string]any)
	assert.Equal(t, "Boas-vindas", les["name"])
	assert.NotContains(t, les, "Name")
}
