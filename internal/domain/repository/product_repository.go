package repository

import (
	"context"

	"github.com/lowzingo/members-api/internal/domain/entity"
)

// ProductRepository defines catalog persistence operations. Products own
// their modules and lessons; deleting a product cascades.
type ProductRepository interface {
	Create(ctx context.Context, p *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	// GetByWebhookSecret resolves the product addressed by a webhook
	// routing secret.
	GetByWebhookSecret(ctx context.Context, secret string) (*entity.Product, error)
	// List returns products with their modules and lessons, newest first.
	List(ctx context.Context) ([]*entity.Product, error)
	Update(ctx context.Context, p *entity.Product) error
	Delete(ctx context.Context, id string) error
	// Duplicate deep-copies a product with its modules and lessons in one
	// transaction. The copy starts inactive and carries no webhook secret.
	Duplicate(ctx context.Context, id, newName string) (*entity.Product, error)

	CreateModule(ctx context.Context, m *entity.Module) error
	UpdateModule(ctx context.Context, m *entity.Module) error
	DeleteModule(ctx context.Context, id string) error

	CreateLesson(ctx context.Context, l *entity.Lesson) error
	UpdateLesson(ctx context.Context, l *entity.Lesson) error
	DeleteLesson(ctx context.Context, id string) error
}
