package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowzingo/members-api/internal/domain/entity"
	"github.com/lowzingo/members-api/internal/domain/repository"
)

const productColumns = `id, name, coalesce(description, ''), coalesce(banner_url, ''), coalesce(sale_url, ''),
	is_active, is_hidden, coalesce(webhook_secret, ''), enabled_platforms, enable_access_removal,
	unlock_after_days, created_at, updated_at`

type ProductRepository struct {
	pool *pgxpool.Pool
}

func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	p := &entity.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.BannerURL, &p.SaleURL,
		&p.IsActive, &p.IsHidden, &p.WebhookSecret, &p.EnabledPlatforms, &p.EnableAccessRemoval,
		&p.UnlockAfterDays, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *entity.Product) error {
	if p.EnabledPlatforms == nil {
		p.EnabledPlatforms = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO products (name, description, banner_url, sale_url, is_active, is_hidden,
			webhook_secret, enabled_platforms, enable_access_removal, unlock_after_days)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, NULLIF($7, ''), $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, p.Name, p.Description, p.BannerURL, p.SaleURL, p.IsActive, p.IsHidden,
		p.WebhookSecret, p.EnabledPlatforms, p.EnableAccessRemoval, p.UnlockAfterDays)

	return row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		return nil, err
	}
	if err := r.attachModules(ctx, []*entity.Product{p}); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProductRepository) GetByWebhookSecret(ctx context.Context, secret string) (*entity.Product, error) {
	return scanProduct(r.pool.QueryRow(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE webhook_secret = $1
	`, secret))
}

func (r *ProductRepository) List(ctx context.Context) ([]*entity.Product, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachModules(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

// attachModules loads modules and lessons for the given products.
// order_index uniqueness is advisory, so creation time breaks ties.
func (r *ProductRepository) attachModules(ctx context.Context, products []*entity.Product) error {
	if len(products) == 0 {
		return nil
	}
	ids := make([]string, 0, len(products))
	byID := make(map[string]*entity.Product, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, name, order_index, unlock_after_days, created_at, updated_at
		FROM modules
		WHERE product_id = ANY($1)
		ORDER BY order_index, created_at
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	var moduleIDs []string
	for rows.Next() {
		m := entity.Module{}
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Name, &m.OrderIndex, &m.UnlockAfterDays,
			&m.CreatedAt, &m.UpdatedAt); err != nil {
			return err
		}
		p := byID[m.ProductID]
		p.Modules = append(p.Modules, m)
		moduleIDs = append(moduleIDs, m.ID)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(moduleIDs) == 0 {
		return nil
	}

	lrows, err := r.pool.Query(ctx, `
		SELECT id, module_id, name, coalesce(description, ''), order_index,
		       coalesce(video_url, ''), coalesce(video_type, ''), files, coalesce(duration, 0),
		       created_at, updated_at
		FROM lessons
		WHERE module_id = ANY($1)
		ORDER BY order_index, created_at
	`, moduleIDs)
	if err != nil {
		return err
	}
	defer lrows.Close()

	var lessons []entity.Lesson
	for lrows.Next() {
		l := entity.Lesson{}
		var files []byte
		if err := lrows.Scan(&l.ID, &l.ModuleID, &l.Name, &l.Description, &l.OrderIndex,
			&l.VideoURL, &l.VideoType, &files, &l.Duration, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return err
		}
		if len(files) > 0 {
			if err := json.Unmarshal(files, &l.Files); err != nil {
				return err
			}
		}
		lessons = append(lessons, l)
	}
	if err := lrows.Err(); err != nil {
		return err
	}
	attachLessons(products, lessons)
	return nil
}

// attachLessons assigns lessons to their modules once the module slices
// have stopped growing. Pointers taken into p.Modules while it is still
// being appended to go stale on reallocation, so assignment happens here
// as a separate pass over the finished slices.
func attachLessons(products []*entity.Product, lessons []entity.Lesson) {
	byModule := make(map[string][]entity.Lesson, len(lessons))
	for _, l := range lessons {
		byModule[l.ModuleID] = append(byModule[l.ModuleID], l)
	}
	for _, p := range products {
		for i := range p.Modules {
			if ls, ok := byModule[p.Modules[i].ID]; ok {
				p.Modules[i].Lessons = ls
			}
		}
	}
}

func (r *ProductRepository) Update(ctx context.Context, p *entity.Product) error {
	p.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, description = NULLIF($2, ''), banner_url = NULLIF($3, ''), sale_url = NULLIF($4, ''),
		    is_active = $5, is_hidden = $6, webhook_secret = NULLIF($7, ''), enabled_platforms = $8,
		    enable_access_removal = $9, unlock_after_days = $10, updated_at = $11
		WHERE id = $12
	`, p.Name, p.Description, p.BannerURL, p.SaleURL, p.IsActive, p.IsHidden,
		p.WebhookSecret, p.EnabledPlatforms, p.EnableAccessRemoval, p.UnlockAfterDays, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Duplicate deep-copies a product inside one transaction. The copy starts
// inactive and carries no webhook secret so it cannot receive events until
// an admin configures it.
func (r *ProductRepository) Duplicate(ctx context.Context, id, newName string) (*entity.Product, error) {
	orig, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cp := &entity.Product{
		Name:                newName,
		Description:         orig.Description,
		BannerURL:           orig.BannerURL,
		SaleURL:             orig.SaleURL,
		IsActive:            false,
		IsHidden:            orig.IsHidden,
		EnabledPlatforms:    orig.EnabledPlatforms,
		EnableAccessRemoval: orig.EnableAccessRemoval,
		UnlockAfterDays:     orig.UnlockAfterDays,
	}
	row := tx.QueryRow(ctx, `
		INSERT INTO products (name, description, banner_url, sale_url, is_active, is_hidden,
			enabled_platforms, enable_access_removal, unlock_after_days)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, cp.Name, cp.Description, cp.BannerURL, cp.SaleURL, cp.IsActive, cp.IsHidden,
		cp.EnabledPlatforms, cp.EnableAccessRemoval, cp.UnlockAfterDays)
	if err := row.Scan(&cp.ID, &cp.CreatedAt, &cp.UpdatedAt); err != nil {
		return nil, err
	}

	for _, m := range orig.Modules {
		var moduleID string
		row := tx.QueryRow(ctx, `
			INSERT INTO modules (product_id, name, order_index, unlock_after_days)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, cp.ID, m.Name, m.OrderIndex, m.UnlockAfterDays)
		if err := row.Scan(&moduleID); err != nil {
			return nil, err
		}
		for _, l := range m.Lessons {
			files, err := json.Marshal(l.Files)
			if err != nil {
				return nil, err
			}
			if l.Files == nil {
				files = []byte("[]")
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO lessons (module_id, name, description, order_index, video_url, video_type, files, duration)
				VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
			`, moduleID, l.Name, l.Description, l.OrderIndex, l.VideoURL, l.VideoType, files, l.Duration); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cp, nil
}

func (r *ProductRepository) CreateModule(ctx context.Context, m *entity.Module) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO modules (product_id, name, order_index, unlock_after_days)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, m.ProductID, m.Name, m.OrderIndex, m.UnlockAfterDays)
	return row.Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *ProductRepository) UpdateModule(ctx context.Context, m *entity.Module) error {
	m.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE modules
		SET name = $1, order_index = $2, unlock_after_days = $3, updated_at = $4
		WHERE id = $5
	`, m.Name, m.OrderIndex, m.UnlockAfterDays, m.UpdatedAt, m.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) DeleteModule(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM modules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) CreateLesson(ctx context.Context, l *entity.Lesson) error {
	files, err := json.Marshal(l.Files)
	if err != nil {
		return err
	}
	if l.Files == nil {
		files = []byte("[]")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO lessons (module_id, name, description, order_index, video_url, video_type, files, duration)
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING id, created_at, updated_at
	`, l.ModuleID, l.Name, l.Description, l.OrderIndex, l.VideoURL, l.VideoType, files, l.Duration)
	return row.Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

func (r *ProductRepository) UpdateLesson(ctx context.Context, l *entity.Lesson) error {
	files, err := json.Marshal(l.Files)
	if err != nil {
		return err
	}
	if l.Files == nil {
		files = []byte("[]")
	}
	l.UpdatedAt = time.Now()
	res, err := r.pool.Exec(ctx, `
		UPDATE lessons
		SET name = $1, description = NULLIF($2, ''), order_index = $3, video_url = NULLIF($4, ''),
		    video_type = NULLIF($5, ''), files = $6, duration = $7, updated_at = $8
		WHERE id = $9
	`, l.Name, l.Description, l.OrderIndex, l.VideoURL, l.VideoType, files, l.Duration, l.UpdatedAt, l.ID)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) DeleteLesson(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.ProductRepository = (*ProductRepository)(nil)
