package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/internal/domain/entity"
	"github.com/lowzingo/members-api/pkg/response"
	"github.com/lowzingo/members-api/pkg/validation"
)

type MemberHandler struct {
	Svc    *application.MemberService
	Logger *logrus.Logger
}

func NewMemberHandler(svc *application.MemberService, logger *logrus.Logger) *MemberHandler {
	return &MemberHandler{Svc: svc, Logger: logger}
}

type updateProfileRequest struct {
	Email           string `json:"email" binding:"omitempty,email"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password" binding:"omitempty,pwd"`
}

func profileBody(u *entity.User) gin.H {
	return gin.H{
		"id":          u.ID,
		"email":       u.Email,
		"full_name":   u.FullName,
		"phone":       u.Phone,
		"is_admin":    u.IsAdmin,
		"product_ids": u.ProductIDs,
		"created_at":  u.CreatedAt,
		"updated_at":  u.UpdatedAt,
	}
}

func (h *MemberHandler) GetProfile(c *gin.Context) {
	u, err := h.Svc.GetProfile(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, profileBody(u), "profile", nil)
}

func (h *MemberHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}

	u, err := h.Svc.UpdateProfile(c.Request.Context(), c.GetString("userID"), application.UpdateProfileInput{
		Email:           req.Email,
		FullName:        req.FullName,
		Phone:           req.Phone,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, application.ErrWrongPassword):
			response.Error[any](c, http.StatusForbidden, "current password is incorrect", nil)
		case errors.Is(err, application.ErrUserNotFound):
			response.Error[any](c, http.StatusNotFound, "user not found", nil)
		case errors.Is(err, application.ErrEmailTaken):
			response.Error[any](c, http.StatusConflict, "email already registered", nil)
		default:
			h.Logger.WithError(err).Error("update profile failed")
			response.Error[any](c, http.StatusInternalServerError, "failed to update profile", nil)
		}
		return
	}
	response.Success(c, http.StatusOK, profileBody(u), "profile updated", nil)
}
