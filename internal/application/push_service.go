package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/domain/entity"
	repo "github.com/lowzingo/members-api/internal/domain/repository"
	"github.com/lowzingo/members-api/pkg/helpers"
	"github.com/lowzingo/members-api/pkg/webpush"
)

// PushJob is queued per subscription and delivered by the push worker.
type PushJob struct {
	Subscription webpush.Subscription `json:"subscription"`
	Notification webpush.Notification `json:"notification"`
}

// PushService registers browser subscriptions and fans broadcasts out to the
// push queue.
type PushService struct {
	Subs      repo.PushSubscriptionRepository
	PushQueue *helpers.RabbitPublisher
	Logger    *logrus.Logger
}

func NewPushService(subs repo.PushSubscriptionRepository, pushQueue *helpers.RabbitPublisher, logger *logrus.Logger) *PushService {
	return &PushService{Subs: subs, PushQueue: pushQueue, Logger: logger}
}

func (s *PushService) Subscribe(ctx context.Context, userID, endpoint, p256dh, auth string) error {
	return s.Subs.Upsert(ctx, &entity.PushSubscription{
		UserID:   userID,
		Endpoint: endpoint,
		P256DH:   p256dh,
		Auth:     auth,
	})
}

func (s *PushService) Unsubscribe(ctx context.Context, endpoint string) error {
	return s.Subs.DeleteByEndpoint(ctx, endpoint)
}

// Broadcast enqueues one delivery job per registered subscription and
// returns how many were queued. Delivery itself happens in the push worker.
func (s *PushService) Broadcast(ctx context.Context, n webpush.Notification) (int, error) {
	subs, err := s.Subs.List(ctx)
	if err != nil {
		return 0, err
	}
	queued := 0
	for _, sub := range subs {
		job := PushJob{
			Subscription: webpush.Subscription{
				Endpoint: sub.Endpoint,
				P256DH:   sub.P256DH,
				Auth:     sub.Auth,
			},
			Notification: n,
		}
		if err := s.PushQueue.PublishJSON(ctx, job); err != nil {
			s.Logger.WithError(err).WithField("endpoint", sub.Endpoint).Error("enqueue push job failed")
			continue
		}
		queued++
	}
	return queued, nil
}
