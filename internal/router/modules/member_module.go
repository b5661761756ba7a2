package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lowzingo/members-api/internal/container"
	handlers "github.com/lowzingo/members-api/internal/interface/http"
	"github.com/lowzingo/members-api/internal/interface/middleware"
	"github.com/lowzingo/members-api/pkg/helpers"
)

// MemberModule wires profile self-service and the member course views.
type MemberModule struct {
	Members *handlers.MemberHandler
	Courses *handlers.CourseHandler
	JWT     *helpers.JWTManager
}

func NewMemberModule(members *handlers.MemberHandler, courses *handlers.CourseHandler, jwt *helpers.JWTManager) *MemberModule {
	return &MemberModule{Members: members, Courses: courses, JWT: jwt}
}

func (m *MemberModule) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/")
	auth.Use(middleware.Auth(container.GetRedis(), m.JWT))
	auth.Use(middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID()))
	{
		auth.GET("/profile", m.Members.GetProfile)
		auth.PUT("/profile", m.Members.UpdateProfile)

		auth.GET("/courses", m.Courses.List)
		auth.GET("/courses/:id", m.Courses.Get)
	}
}
