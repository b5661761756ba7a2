package repository

import (
	"context"

	"github.com/lowzingo/members-api/internal/domain/entity"
)

// PushSubscriptionRepository stores browser push endpoints.
type PushSubscriptionRepository interface {
	// Upsert registers a subscription, refreshing keys when the endpoint
	// is already known.
	Upsert(ctx context.Context, s *entity.PushSubscription) error
	List(ctx context.Context) ([]*entity.PushSubscription, error)
	// DeleteByEndpoint drops a subscription; used when the push service
	// reports the endpoint gone (404/410) or the member unsubscribes.
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}
