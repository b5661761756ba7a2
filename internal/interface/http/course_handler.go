package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/pkg/response"
)

// CourseHandler serves the member-facing catalog with drip state applied.
type CourseHandler struct {
	Catalog *application.CatalogService
	Members *application.MemberService
	Logger  *logrus.Logger
}

func NewCourseHandler(catalog *application.CatalogService, members *application.MemberService, logger *logrus.Logger) *CourseHandler {
	return &CourseHandler{Catalog: catalog, Members: members, Logger: logger}
}

func (h *CourseHandler) List(c *gin.Context) {
	u, err := h.Members.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	courses, err := h.Catalog.ListCourses(c.Request.Context(), u)
	if err != nil {
		h.Logger.WithError(err).Error("list courses failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to list courses", nil)
		return
	}
	response.Success(c, http.StatusOK, courses, "courses", nil)
}

func (h *CourseHandler) Get(c *gin.Context) {
	u, err := h.Members.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	view, err := h.Catalog.GetCourse(c.Request.Context(), u, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, application.ErrCatalogNotFound):
			response.Error[any](c, http.StatusNotFound, "course not found", nil)
		case errors.Is(err, application.ErrNoAccess):
			response.Error[any](c, http.StatusForbidden, "no access to this course", nil)
		default:
			h.Logger.WithError(err).Error("get course failed")
			response.Error[any](c, http.StatusInternalServerError, "failed to load course", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, view, "course", nil)
}
