package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/access"
	"github.com/lowzingo/members-api/internal/domain/entity"
	repo "github.com/lowzingo/members-api/internal/domain/repository"
)

var (
	ErrNoAccess        = errors.New("no access to this product")
	ErrCatalogNotFound = errors.New("catalog item not found")
)

// CatalogService manages products, modules and lessons, and builds the
// drip-aware course views members see.
type CatalogService struct {
	Products repo.ProductRepository
	Logger   *logrus.Logger
	Now      func() time.Time
}

func NewCatalogService(products repo.ProductRepository, logger *logrus.Logger) *CatalogService {
	return &CatalogService{Products: products, Logger: logger, Now: time.Now}
}

func newWebhookSecret() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type ProductInput struct {
	Name                string
	Description         string
	BannerURL           string
	SaleURL             string
	IsActive            bool
	IsHidden            bool
	EnabledPlatforms    []string
	EnableAccessRemoval bool
	UnlockAfterDays     int
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*entity.Product, error) {
	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}
	p := &entity.Product{
		Name:                strings.TrimSpace(in.Name),
		Description:         in.Description,
		BannerURL:           in.BannerURL,
		SaleURL:             in.SaleURL,
		IsActive:            in.IsActive,
		IsHidden:            in.IsHidden,
		WebhookSecret:       secret,
		EnabledPlatforms:    in.EnabledPlatforms,
		EnableAccessRemoval: in.EnableAccessRemoval,
		UnlockAfterDays:     in.UnlockAfterDays,
	}
	if err := s.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.Products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]*entity.Product, error) {
	return s.Products.List(ctx)
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*entity.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.BannerURL = in.BannerURL
	p.SaleURL = in.SaleURL
	p.IsActive = in.IsActive
	p.IsHidden = in.IsHidden
	p.EnabledPlatforms = in.EnabledPlatforms
	p.EnableAccessRemoval = in.EnableAccessRemoval
	p.UnlockAfterDays = in.UnlockAfterDays
	if err := s.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.Products.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCatalogNotFound
		}
		return err
	}
	return nil
}

// DuplicateProduct clones a product with its modules and lessons. The copy
// starts inactive and without a webhook secret, so the original keeps
// receiving platform events.
func (s *CatalogService) DuplicateProduct(ctx context.Context, id, newName string) (*entity.Product, error) {
	p, err := s.Products.Duplicate(ctx, id, strings.TrimSpace(newName))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return p, nil
}

// RotateWebhookSecret replaces the product's webhook secret, invalidating
// the old ingestion URL.
func (s *CatalogService) RotateWebhookSecret(ctx context.Context, id string) (*entity.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	secret, err := newWebhookSecret()
	if err != nil {
		return nil, err
	}
	p.WebhookSecret = secret
	if err := s.Products.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

type ModuleInput struct {
	Name            string
	OrderIndex      int
	UnlockAfterDays int
}

func (s *CatalogService) CreateModule(ctx context.Context, productID string, in ModuleInput) (*entity.Module, error) {
	m := &entity.Module{
		ProductID:       productID,
		Name:            strings.TrimSpace(in.Name),
		OrderIndex:      in.OrderIndex,
		UnlockAfterDays: in.UnlockAfterDays,
	}
	if err := s.Products.CreateModule(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *CatalogService) UpdateModule(ctx context.Context, id string, in ModuleInput) (*entity.Module, error) {
	m := &entity.Module{
		ID:              id,
		Name:            strings.TrimSpace(in.Name),
		OrderIndex:      in.OrderIndex,
		UnlockAfterDays: in.UnlockAfterDays,
	}
	if err := s.Products.UpdateModule(ctx, m); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *CatalogService) DeleteModule(ctx context.Context, id string) error {
	if err := s.Products.DeleteModule(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCatalogNotFound
		}
		return err
	}
	return nil
}

type LessonInput struct {
	Name        string
	Description string
	OrderIndex  int
	VideoURL    string
	VideoType   string
	Files       []entity.LessonFile
	Duration    int
}

func (s *CatalogService) CreateLesson(ctx context.Context, moduleID string, in LessonInput) (*entity.Lesson, error) {
	l := &entity.Lesson{
		ModuleID:    moduleID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		OrderIndex:  in.OrderIndex,
		VideoURL:    in.VideoURL,
		VideoType:   in.VideoType,
		Files:       in.Files,
		Duration:    in.Duration,
	}
	if err := s.Products.CreateLesson(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *CatalogService) UpdateLesson(ctx context.Context, id string, in LessonInput) (*entity.Lesson, error) {
	l := &entity.Lesson{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		OrderIndex:  in.OrderIndex,
		VideoURL:    in.VideoURL,
		VideoType:   in.VideoType,
		Files:       in.Files,
		Duration:    in.Duration,
	}
	if err := s.Products.UpdateLesson(ctx, l); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCatalogNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *CatalogService) DeleteLesson(ctx context.Context, id string) error {
	if err := s.Products.DeleteLesson(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCatalogNotFound
		}
		return err
	}
	return nil
}

// Member-facing course views.

type CourseSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	BannerURL   string `json:"banner_url"`
	SaleURL     string `json:"sale_url,omitempty"`
	HasAccess   bool   `json:"has_access"`
}

type ModuleView struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	OrderIndex int           `json:"order_index"`
	Unlock     access.Unlock `json:"unlock"`
	Lessons    []LessonView  `json:"lessons"`
}

type LessonView struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	OrderIndex  int                 `json:"order_index"`
	VideoURL    string              `json:"video_url,omitempty"`
	VideoType   string              `json:"video_type,omitempty"`
	Files       []entity.LessonFile `json:"files,omitempty"`
	Duration    int                 `json:"duration,omitempty"`
}

type CourseView struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	BannerURL   string       `json:"banner_url"`
	Modules     []ModuleView `json:"modules"`
}

// ListCourses returns the catalog as seen by a member. Hidden or inactive
// products only appear for members already entitled to them; admins see
// everything.
func (s *CatalogService) ListCourses(ctx context.Context, u *entity.User) ([]CourseSummary, error) {
	products, err := s.Products.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CourseSummary, 0, len(products))
	for _, p := range products {
		has := u.IsAdmin || u.HasProduct(p.ID)
		if (p.IsHidden || !p.IsActive) && !has {
			continue
		}
		out = append(out, CourseSummary{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			BannerURL:   p.BannerURL,
			SaleURL:     p.SaleURL,
			HasAccess:   has,
		})
	}
	return out, nil
}

// GetCourse builds the module/lesson tree for one product with per-module
// unlock state. Video URLs and attachments are withheld for modules still
// inside their drip window.
func (s *CatalogService) GetCourse(ctx context.Context, u *entity.User, productID string) (*CourseView, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !u.IsAdmin && !u.HasProduct(p.ID) {
		return nil, ErrNoAccess
	}

	now := s.Now()
	grantedAt := u.GrantedAt(p.ID)

	view := &CourseView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		BannerURL:   p.BannerURL,
		Modules:     make([]ModuleView, 0, len(p.Modules)),
	}
	for _, m := range p.Modules {
		var unlock access.Unlock
		if u.IsAdmin {
			unlock = access.Unlock{IsUnlocked: true}
		} else {
			unlock = access.Calculate(grantedAt, m.EffectiveUnlockDays(p.UnlockAfterDays), now)
		}
		mv := ModuleView{
			ID:         m.ID,
			Name:       m.Name,
			OrderIndex: m.OrderIndex,
			Unlock:     unlock,
			Lessons:    make([]LessonView, 0, len(m.Lessons)),
		}
		for _, l := range m.Lessons {
			lv := LessonView{ID: l.ID, Name: l.Name, OrderIndex: l.OrderIndex}
			if unlock.IsUnlocked {
				lv.Description = l.Description
				lv.VideoURL = l.VideoURL
				lv.VideoType = l.VideoType
				lv.Files = l.Files
				lv.Duration = l.Duration
			}
			mv.Lessons = append(mv.Lessons, lv)
		}
		view.Modules = append(view.Modules, mv)
	}
	return view, nil
}
