package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/internal/webhook"
)

// WebhookHandler ingests payment platform deliveries. Responses here are the
// raw shape platforms expect, not the API envelope: a 2xx acknowledges the
// delivery, anything else makes the platform retry.
type WebhookHandler struct {
	Service *application.WebhookService
	Logger  *logrus.Logger
}

func NewWebhookHandler(svc *application.WebhookService, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{Service: svc, Logger: logger}
}

// Receive handles POST /api/webhook/:secret.
func (h *WebhookHandler) Receive(c *gin.Context) {
	secret := c.Param("secret")

	product, err := h.Service.ResolveProduct(c.Request.Context(), secret)
	if err != nil {
		if errors.Is(err, application.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "product not found"})
			return
		}
		h.Logger.WithError(err).Error("webhook product lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable body"})
		return
	}

	result, err := h.Service.Process(c.Request.Context(), product, body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondResult(c, result)
}

// ReceiveGeneric handles POST /api/webhook/cartpanda, the legacy route that
// carries the product id in the body. It only grants, never creates users.
func (h *WebhookHandler) ReceiveGeneric(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "unreadable body"})
		return
	}

	order, err := webhook.ParseGenericOrder(body)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.Service.ApplyGenericOrder(c.Request.Context(), order)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondResult(c, result)
}

func (h *WebhookHandler) respondResult(c *gin.Context, r *application.WebhookResult) {
	resp := gin.H{
		"success": true,
		"action":  r.Action,
		"message": messageFor(r.Action),
	}
	if r.UserEmail != "" {
		resp["user_email"] = r.UserEmail
	}
	c.JSON(http.StatusOK, resp)
}

func (h *WebhookHandler) respondError(c *gin.Context, err error) {
	var notEnabled *webhook.PlatformNotEnabledError
	var missing *webhook.MissingFieldError
	switch {
	case errors.Is(err, webhook.ErrUnrecognizedPayload):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.As(err, &notEnabled):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": err.Error()})
	case errors.As(err, &missing):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
	case errors.Is(err, application.ErrProductNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "product not found"})
	default:
		h.Logger.WithError(err).Error("webhook processing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "internal error"})
	}
}

func messageFor(action string) string {
	switch action {
	case application.ActionUserCreated:
		return "user created and access granted"
	case application.ActionAccessGranted:
		return "access granted"
	case application.ActionAlreadyHasAccess:
		return "user already has access"
	case application.ActionAccessRemoved:
		return "access removed"
	case application.ActionUserNotFound:
		return "user not found"
	default:
		return "event ignored"
	}
}
