package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/pkg/response"
)

// 32 MB cap per upload
const maxUploadBytes = 32 << 20

// MediaHandler accepts multipart uploads of course assets. Admin only.
type MediaHandler struct {
	Svc    *application.MediaService
	Logger *logrus.Logger
}

func NewMediaHandler(svc *application.MediaService, logger *logrus.Logger) *MediaHandler {
	return &MediaHandler{Svc: svc, Logger: logger}
}

func (h *MediaHandler) Upload(c *gin.Context) {
	folder := c.Param("folder")
	if !h.Svc.ValidFolder(folder) {
		response.Error[any](c, http.StatusBadRequest, "unknown media folder", nil)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	fh, err := c.FormFile("file")
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "missing file", nil)
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "unreadable file", nil)
		return
	}
	defer func() { _ = f.Close() }()

	url, err := h.Svc.Upload(c.Request.Context(), folder, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		if errors.Is(err, application.ErrStorageNotConfigured) {
			response.Error[any](c, http.StatusServiceUnavailable, "storage not configured", nil)
			return
		}
		h.Logger.WithError(err).Error("media upload failed")
		response.Error[any](c, http.StatusInternalServerError, "upload failed", nil)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"url": url}, "uploaded", nil)
}
