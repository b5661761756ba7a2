package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowzingo/members-api/internal/domain/entity"
	"github.com/lowzingo/members-api/internal/domain/repository"
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

func mapUniqueErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrDuplicate
	}
	return err
}

const userColumns = `id, email, password_hash, full_name, coalesce(phone, ''), is_admin, product_ids, product_grants, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var grants []byte
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.IsAdmin,
		&u.ProductIDs, &grants, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if len(grants) > 0 {
		if err := json.Unmarshal(grants, &u.ProductGrants); err != nil {
			return nil, err
		}
	}
	return u, nil
}

func grantsJSON(grants map[string]time.Time) ([]byte, error) {
	if grants == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(grants)
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	grants, err := grantsJSON(u.ProductGrants)
	if err != nil {
		return err
	}
	if u.ProductIDs == nil {
		u.ProductIDs = []string{}
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, phone, is_admin, product_ids, product_grants)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Email, u.PasswordHash, u.FullName, u.Phone, u.IsAdmin, u.ProductIDs, grants)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapUniqueErr(err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1
	`, entity.NormalizeEmail(email)))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	grants, err := grantsJSON(u.ProductGrants)
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, password_hash = $2, full_name = $3, phone = NULLIF($4, ''),
		    is_admin = $5, product_ids = $6, product_grants = $7, updated_at = $8
		WHERE id = $9
	`, u.Email, u.PasswordHash, u.FullName, u.Phone, u.IsAdmin, u.ProductIDs, grants, u.UpdatedAt, u.ID)
	if err != nil {
		return mapUniqueErr(err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	res, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context) ([]*entity.User, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GrantProduct extends the entitlement set in one statement. The WHERE
// clause doubles as the membership test, so two racing deliveries cannot
// both append and a read-modify-write lost update cannot happen.
func (r *UserRepository) GrantProduct(ctx context.Context, userID, productID, phone string, grantedAt time.Time) (bool, error) {
	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET product_ids = array_append(product_ids, $2::uuid),
		    product_grants = product_grants || jsonb_build_object($2::text, to_jsonb($3::timestamptz)),
		    phone = CASE WHEN coalesce(phone, '') = '' THEN NULLIF($4, '') ELSE phone END,
		    updated_at = now()
		WHERE id = $1 AND NOT (product_ids @> ARRAY[$2]::uuid[])
	`, userID, productID, grantedAt, phone)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

func (r *UserRepository) RevokeProduct(ctx context.Context, userID, productID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE users
		SET product_ids = array_remove(product_ids, $2::uuid),
		    product_grants = product_grants - $2::text,
		    updated_at = now()
		WHERE id = $1
	`, userID, productID)
	return err
}

// CreateWithGrant inserts a new entitled user, converging with concurrent
// deliveries through the email unique constraint: when another request won
// the insert, the existing row gains the entitlement instead and inserted
// comes back false (xmax = 0 only holds for freshly inserted tuples).
func (r *UserRepository) CreateWithGrant(ctx context.Context, u *entity.User, productID string, grantedAt time.Time) (bool, error) {
	var inserted bool
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, full_name, phone, product_ids, product_grants)
		VALUES ($1, $2, $3, NULLIF($4, ''), ARRAY[$5]::uuid[], jsonb_build_object($5::text, to_jsonb($6::timestamptz)))
		ON CONFLICT (email) DO UPDATE SET
			product_ids = CASE WHEN users.product_ids @> ARRAY[$5]::uuid[]
				THEN users.product_ids
				ELSE array_append(users.product_ids, $5::uuid) END,
			product_grants = CASE WHEN users.product_ids @> ARRAY[$5]::uuid[]
				THEN users.product_grants
				ELSE users.product_grants || jsonb_build_object($5::text, to_jsonb($6::timestamptz)) END,
			phone = CASE WHEN coalesce(users.phone, '') = '' THEN NULLIF($4, '') ELSE users.phone END,
			updated_at = now()
		RETURNING id, created_at, updated_at, (xmax = 0)
	`, u.Email, u.PasswordHash, u.FullName, u.Phone, productID, grantedAt)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt, &inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
