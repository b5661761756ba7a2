package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lowzingo/members-api/internal/domain/entity"
	"github.com/lowzingo/members-api/internal/domain/repository"
)

type PushSubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewPushSubscriptionRepository(pool *pgxpool.Pool) *PushSubscriptionRepository {
	return &PushSubscriptionRepository{pool: pool}
}

func (r *PushSubscriptionRepository) Upsert(ctx context.Context, s *entity.PushSubscription) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO push_subscriptions (user_id, endpoint, p256dh, auth)
		VALUES (NULLIF($1, '')::uuid, $2, $3, $4)
		ON CONFLICT (endpoint) DO UPDATE SET
			user_id = excluded.user_id,
			p256dh = excluded.p256dh,
			auth = excluded.auth
		RETURNING id, created_at
	`, s.UserID, s.Endpoint, s.P256DH, s.Auth)
	return row.Scan(&s.ID, &s.CreatedAt)
}

func (r *PushSubscriptionRepository) List(ctx context.Context) ([]*entity.PushSubscription, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, coalesce(user_id::text, ''), endpoint, p256dh, auth, created_at
		FROM push_subscriptions
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*entity.PushSubscription
	for rows.Next() {
		s := &entity.PushSubscription{}
		if err := rows.Scan(&s.ID, &s.UserID, &s.Endpoint, &s.P256DH, &s.Auth, &s.CreatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *PushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM push_subscriptions WHERE endpoint = $1`, endpoint)
	return err
}

var _ repository.PushSubscriptionRepository = (*PushSubscriptionRepository)(nil)
