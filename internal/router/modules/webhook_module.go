package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lowzingo/members-api/internal/container"
	handlers "github.com/lowzingo/members-api/internal/interface/http"
	"github.com/lowzingo/members-api/internal/interface/middleware"
)

// WebhookModule exposes the payment platform ingestion routes. These stay
// outside the auth stack: platforms authenticate by knowing the per-product
// secret in the URL.
type WebhookModule struct {
	Handler *handlers.WebhookHandler
}

func NewWebhookModule(h *handlers.WebhookHandler) *WebhookModule {
	return &WebhookModule{Handler: h}
}

func (m *WebhookModule) Register(rg *gin.RouterGroup) {
	// Generous limit; platforms burst on launch days
	rl := middleware.RateLimit(container.GetRedis(), 600, time.Minute, middleware.KeyByIPAndPath())

	rg.POST("/webhook/cartpanda", rl, m.Handler.ReceiveGeneric)
	rg.POST("/webhook/:secret", rl, m.Handler.Receive)
}
