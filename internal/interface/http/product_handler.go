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

// ProductHandler is the admin CRUD surface for products, modules and lessons.
type ProductHandler struct {
	Svc    *application.CatalogService
	Logger *logrus.Logger
}

func NewProductHandler(svc *application.CatalogService, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{Svc: svc, Logger: logger}
}

type productRequest struct {
	Name                string   `json:"name" binding:"required"`
	Description         string   `json:"description"`
	BannerURL           string   `json:"banner_url"`
	SaleURL             string   `json:"sale_url"`
	IsActive            bool     `json:"is_active"`
	IsHidden            bool     `json:"is_hidden"`
	EnabledPlatforms    []string `json:"enabled_platforms" binding:"omitempty,dive,platform"`
	EnableAccessRemoval bool     `json:"enable_access_removal"`
	UnlockAfterDays     int      `json:"unlock_after_days" binding:"gte=0"`
}

func (r *productRequest) toInput() application.ProductInput {
	return application.ProductInput{
		Name:                r.Name,
		Description:         r.Description,
		BannerURL:           r.BannerURL,
		SaleURL:             r.SaleURL,
		IsActive:            r.IsActive,
		IsHidden:            r.IsHidden,
		EnabledPlatforms:    r.EnabledPlatforms,
		EnableAccessRemoval: r.EnableAccessRemoval,
		UnlockAfterDays:     r.UnlockAfterDays,
	}
}

type moduleRequest struct {
	Name       string `json:"name" binding:"required"`
	OrderIndex int    `json:"order_index"`
	// -1 inherits the product-level drip delay
	UnlockAfterDays int `json:"unlock_after_days" binding:"gte=-1"`
}

type lessonRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	OrderIndex  int                 `json:"order_index"`
	VideoURL    string              `json:"video_url"`
	VideoType   string              `json:"video_type" binding:"omitempty,videotype"`
	Files       []entity.LessonFile `json:"files"`
	Duration    int                 `json:"duration" binding:"gte=0"`
}

func (r *lessonRequest) toInput() application.LessonInput {
	return application.LessonInput{
		Name:        r.Name,
		Description: r.Description,
		OrderIndex:  r.OrderIndex,
		VideoURL:    r.VideoURL,
		VideoType:   r.VideoType,
		Files:       r.Files,
		Duration:    r.Duration,
	}
}

func lessonBody(l *entity.Lesson) gin.H {
	files := l.Files
	if files == nil {
		files = []entity.LessonFile{}
	}
	return gin.H{
		"id":          l.ID,
		"module_id":   l.ModuleID,
		"name":        l.Name,
		"description": l.Description,
		"order_index": l.OrderIndex,
		"video_url":   l.VideoURL,
		"video_type":  l.VideoType,
		"files":       files,
		"duration":    l.Duration,
		"created_at":  l.CreatedAt,
		"updated_at":  l.UpdatedAt,
	}
}

func moduleBody(m *entity.Module) gin.H {
	lessons := make([]gin.H, 0, len(m.Lessons))
	for i := range m.Lessons {
		lessons = append(lessons, lessonBody(&m.Lessons[i]))
	}
	return gin.H{
		"id":                m.ID,
		"product_id":        m.ProductID,
		"name":              m.Name,
		"order_index":       m.OrderIndex,
		"unlock_after_days": m.UnlockAfterDays,
		"lessons":           lessons,
		"created_at":        m.CreatedAt,
		"updated_at":        m.UpdatedAt,
	}
}

// productBody shapes a product for the admin surface; the webhook secret is
// included here and nowhere else.
func productBody(p *entity.Product) gin.H {
	modules := make([]gin.H, 0, len(p.Modules))
	for i := range p.Modules {
		modules = append(modules, moduleBody(&p.Modules[i]))
	}
	platforms := p.EnabledPlatforms
	if platforms == nil {
		platforms = []string{}
	}
	return gin.H{
		"id":                    p.ID,
		"name":                  p.Name,
		"description":           p.Description,
		"banner_url":            p.BannerURL,
		"sale_url":              p.SaleURL,
		"is_active":             p.IsActive,
		"is_hidden":             p.IsHidden,
		"webhook_secret":        p.WebhookSecret,
		"enabled_platforms":     platforms,
		"enable_access_removal": p.EnableAccessRemoval,
		"unlock_after_days":     p.UnlockAfterDays,
		"modules":               modules,
		"created_at":            p.CreatedAt,
		"updated_at":            p.UpdatedAt,
	}
}

func (h *ProductHandler) respondCatalogErr(c *gin.Context, err error, what string) {
	if errors.Is(err, application.ErrCatalogNotFound) {
		response.Error[any](c, http.StatusNotFound, what+" not found", nil)
		return
	}
	h.Logger.WithError(err).Error(what + " operation failed")
	response.Error[any](c, http.StatusInternalServerError, "operation failed", nil)
}

func (h *ProductHandler) List(c *gin.Context) {
	products, err := h.Svc.ListProducts(c.Request.Context())
	if err != nil {
		h.Logger.WithError(err).Error("list products failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to list products", nil)
		return
	}
	out := make([]gin.H, 0, len(products))
	for _, p := range products {
		out = append(out, productBody(p))
	}
	response.Success(c, http.StatusOK, out, "products", nil)
}

func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.Svc.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondCatalogErr(c, err, "product")
		return
	}
	response.Success(c, http.StatusOK, productBody(p), "product", nil)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.CreateProduct(c.Request.Context(), req.toInput())
	if err != nil {
		h.Logger.WithError(err).Error("create product failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create product", nil)
		return
	}
	response.Success(c, http.StatusCreated, productBody(p), "product created", nil)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.UpdateProduct(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		h.respondCatalogErr(c, err, "product")
		return
	}
	response.Success(c, http.StatusOK, productBody(p), "product updated", nil)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.Svc.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		h.respondCatalogErr(c, err, "product")
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "product deleted", nil)
}

func (h *ProductHandler) Duplicate(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	p, err := h.Svc.DuplicateProduct(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		h.respondCatalogErr(c, err, "product")
		return
	}
	response.Success(c, http.StatusCreated, productBody(p), "product duplicated", nil)
}

func (h *ProductHandler) RotateSecret(c *gin.Context) {
	p, err := h.Svc.RotateWebhookSecret(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondCatalogErr(c, err, "product")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": p.ID, "webhook_secret": p.WebhookSecret}, "webhook secret rotated", nil)
}

func (h *ProductHandler) CreateModule(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	m, err := h.Svc.CreateModule(c.Request.Context(), c.Param("id"), application.ModuleInput{
		Name:            req.Name,
		OrderIndex:      req.OrderIndex,
		UnlockAfterDays: req.UnlockAfterDays,
	})
	if err != nil {
		h.Logger.WithError(err).Error("create module failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create module", nil)
		return
	}
	response.Success(c, http.StatusCreated, moduleBody(m), "module created", nil)
}

func (h *ProductHandler) UpdateModule(c *gin.Context) {
	var req moduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	m, err := h.Svc.UpdateModule(c.Request.Context(), c.Param("id"), application.ModuleInput{
		Name:            req.Name,
		OrderIndex:      req.OrderIndex,
		UnlockAfterDays: req.UnlockAfterDays,
	})
	if err != nil {
		h.respondCatalogErr(c, err, "module")
		return
	}
	response.Success(c, http.StatusOK, moduleBody(m), "module updated", nil)
}

func (h *ProductHandler) DeleteModule(c *gin.Context) {
	if err := h.Svc.DeleteModule(c.Request.Context(), c.Param("id")); err != nil {
		h.respondCatalogErr(c, err, "module")
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "module deleted", nil)
}

func (h *ProductHandler) CreateLesson(c *gin.Context) {
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	l, err := h.Svc.CreateLesson(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		h.Logger.WithError(err).Error("create lesson failed")
		response.Error[any](c, http.StatusInternalServerError, "failed to create lesson", nil)
		return
	}
	response.Success(c, http.StatusCreated, lessonBody(l), "lesson created", nil)
}

func (h *ProductHandler) UpdateLesson(c *gin.Context) {
	var req lessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	l, err := h.Svc.UpdateLesson(c.Request.Context(), c.Param("id"), req.toInput())
	if err != nil {
		h.respondCatalogErr(c, err, "lesson")
		return
	}
	response.Success(c, http.StatusOK, lessonBody(l), "lesson updated", nil)
}

func (h *ProductHandler) DeleteLesson(c *gin.Context) {
	if err := h.Svc.DeleteLesson(c.Request.Context(), c.Param("id")); err != nil {
		h.respondCatalogErr(c, err, "lesson")
		return
	}
	response.Success[any](c, http.StatusOK, map[string]any{"deleted": true}, "lesson deleted", nil)
}
