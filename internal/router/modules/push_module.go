package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lowzingo/members-api/internal/container"
	handlers "github.com/lowzingo/members-api/internal/interface/http"
	"github.com/lowzingo/members-api/internal/interface/middleware"
	"github.com/lowzingo/members-api/pkg/helpers"
)

type PushModule struct {
	Handler *handlers.PushHandler
	JWT     *helpers.JWTManager
}

func NewPushModule(h *handlers.PushHandler, jwt *helpers.JWTManager) *PushModule {
	return &PushModule{Handler: h, JWT: jwt}
}

func (m *PushModule) Register(rg *gin.RouterGroup) {
	rg.GET("/push/public-key", m.Handler.PublicKey)

	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByUserID()))
	{
		auth.POST("/push/subscribe", m.Handler.Subscribe)
		auth.POST("/push/unsubscribe", m.Handler.Unsubscribe)
	}
}
