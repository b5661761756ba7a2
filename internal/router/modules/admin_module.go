package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lowzingo/members-api/internal/container"
	handlers "github.com/lowzingo/members-api/internal/interface/http"
	"github.com/lowzingo/members-api/internal/interface/middleware"
	"github.com/lowzingo/members-api/pkg/helpers"
)

// AdminModule wires the member, catalog, media and broadcast administration
// routes behind the admin gate.
type AdminModule struct {
	Members  *handlers.AdminHandler
	Products *handlers.ProductHandler
	Media    *handlers.MediaHandler
	Push     *handlers.PushHandler
	JWT      *helpers.JWTManager
}

func NewAdminModule(members *handlers.AdminHandler, products *handlers.ProductHandler, media *handlers.MediaHandler, push *handlers.PushHandler, jwt *helpers.JWTManager) *AdminModule {
	return &AdminModule{Members: members, Products: products, Media: media, Push: push, JWT: jwt}
}

func (m *AdminModule) Register(rg *gin.RouterGroup) {
	admin := rg.Group("/admin")
	admin.Use(middleware.Auth(container.GetRedis(), m.JWT))
	admin.Use(middleware.AdminOnly())
	admin.Use(middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByUserID()))
	{
		admin.GET("/members", m.Members.ListMembers)
		admin.GET("/members/search", m.Members.SearchMembers)
		admin.POST("/members", m.Members.CreateMember)
		admin.GET("/members/:id", m.Members.GetMember)
		admin.PUT("/members/:id", m.Members.UpdateMember)
		admin.DELETE("/members/:id", m.Members.DeleteMember)

		admin.GET("/products", m.Products.List)
		admin.POST("/products", m.Products.Create)
		admin.GET("/products/:id", m.Products.Get)
		admin.PUT("/products/:id", m.Products.Update)
		admin.DELETE("/products/:id", m.Products.Delete)
		admin.POST("/products/:id/duplicate", m.Products.Duplicate)
		admin.POST("/products/:id/rotate-secret", m.Products.RotateSecret)

		admin.POST("/products/:id/modules", m.Products.CreateModule)
		admin.PUT("/modules/:id", m.Products.UpdateModule)
		admin.DELETE("/modules/:id", m.Products.DeleteModule)

		admin.POST("/modules/:id/lessons", m.Products.CreateLesson)
		admin.PUT("/lessons/:id", m.Products.UpdateLesson)
		admin.DELETE("/lessons/:id", m.Products.DeleteLesson)

		admin.POST("/media/:folder", m.Media.Upload)

		admin.POST("/push/broadcast", m.Push.Broadcast)
	}
}
