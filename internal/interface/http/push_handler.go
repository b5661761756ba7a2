package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/pkg/response"
	"github.com/lowzingo/members-api/pkg/validation"
	"github.com/lowzingo/members-api/pkg/webpush"
)

// PushHandler registers browser push subscriptions and lets admins broadcast.
type PushHandler struct {
	Svc            *application.PushService
	VAPIDPublicKey string
	Logger         *logrus.Logger
}

func NewPushHandler(svc *application.PushService, vapidPublicKey string, logger *logrus.Logger) *PushHandler {
	return &PushHandler{Svc: svc, VAPIDPublicKey: vapidPublicKey, Logger: logger}
}

type subscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

type broadcastRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
	Icon  string `json:"icon"`
	URL   string `json:"url"`
}

// PublicKey exposes the VAPID public key the browser needs to subscribe.
func (h *PushHandler) PublicKey(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"public_key": h.VAPIDPublicKey}, "vapid public key", nil)
}

func (h *PushHandler) Subscribe(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.Subscribe(c.Request.Context(), c.GetString("userID"), req.Endpoint, req.Keys.P256DH, req.Keys.Auth); err != nil {
		h.Logger.WithError(err).Error("push subscribe failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to subscribe", nil)
		return
	}
	response.Success[any](c, http.StatusCreated, map[string]any{"subscribed": true}, "subscribed", nil)
}

func (h *PushHandler) Unsubscribe(c *gin.Context) {
	var req struct {
		Endpoint string `json:"endpoint" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	if err := h.Svc.Unsubscribe(c.Request.Context(), req.Endpoint); err != nil {
		h.Logger.WithError(err).Error("push unsubscribe failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to unsubscribe", nil)
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"unsubscribed": true}, "unsubscribed", nil)
}

// Broadcast queues a notification for every subscription. Admin only.
func (h *PushHandler) Broadcast(c *gin.Context) {
	var req broadcastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	queued, err := h.Svc.Broadcast(c.Request.Context(), webpush.Notification{
		Title: req.Title,
		Body:  req.Body,
		Icon:  req.Icon,
		URL:   req.URL,
	})
	if err != nil {
		h.Logger.WithError(err).Error("broadcast failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to broadcast", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"queued": queued}, "broadcast queued", nil)
}
