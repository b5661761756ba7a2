package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/pkg/response"
	"github.com/lowzingo/members-api/pkg/validation"
)

// AdminHandler manages members. All routes behind the admin gate.
type AdminHandler struct {
	Svc    *application.MemberService
	Logger *logrus.Logger
}

func NewAdminHandler(svc *application.MemberService, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{Svc: svc, Logger: logger}
}

type adminMemberRequest struct {
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"omitempty,pwd"`
	FullName   string   `json:"full_name" binding:"required"`
	Phone      string   `json:"phone"`
	IsAdmin    bool     `json:"is_admin"`
	ProductIDs []string `json:"product_ids"`
}

func (r *adminMemberRequest) toInput() application.AdminMemberInput {
	return application.AdminMemberInput{
		Email:      r.Email,
		Password:   r.Password,
		FullName:   r.FullName,
		Phone:      r.Phone,
		IsAdmin:    r.IsAdmin,
		ProductIDs: r.ProductIDs,
	}
}

func (h *AdminHandler) ListMembers(c *gin.Context) {
	users, err := h.Svc.ListMembers(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("list members failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to list members", nil)
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, profileBody(u))
	}
	response.Success(c, http.StatusOK, out, "members", nil)
}

func (h *AdminHandler) GetMember(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "member not found", nil)
		return
	}
	response.Success(c, http.StatusOK, profileBody(u), "member", nil)
}

func (h *AdminHandler) CreateMember(c *gin.Context) {
	var req adminMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if req.Password == "" {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", map[string]string{"password": "password is required"})
		return
	}
	u, err := h.Svc.CreateMember(c.Request.Context(), req.toInput())
	if err != nil {
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
			return
		}
		h.Logger.WithError(err).Error("create member failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create member", nil)
		return
	}
	response.Success(c, http.StatusCreated, profileBody(u), "member created", nil)
}

func (h *AdminHandler) UpdateMember(c *gin.Context) {
	var req adminMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.UpdateMember(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "member not found", nil)
			return
		}
		if errors.Is(err, application.ErrEmailTaken) {
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
			return
		}
		h.Logger.WithError(err).Error("update member failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to update member", nil)
		return
	}
	response.Success(c, http.StatusOK, profileBody(u), "member updated", nil)
}

func (h *AdminHandler) DeleteMember(c *gin.Context) {
	if err := h.Svc.DeleteMember(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, application.ErrUserNotFound) {
			response.Error[any](c, http.StatusNotFound, "member not found", nil)
			return
		}
		h.Logger.WithError(err).Error("delete member failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to delete member", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "member deleted", nil)
}

// SearchMembers proxies a text query to the search index.
func (h *AdminHandler) SearchMembers(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "missing query", nil)
		return
	}
	size := 10
	if s := c.Query("size"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			size = n
		}
	}
	hits, err := h.Svc.SearchMembers(c.Request.Context(), q, size)
	if err != nil {
		h.Logger.WithError(err).Error("member search failed")
		response.Error[any](c, http.StatusInternalServerError, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", map[string]any{"count": len(hits)})
}
