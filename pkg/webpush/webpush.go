// Package webpush delivers Web Push notifications signed with VAPID keys.
package webpush

import (
	"context"
	"encoding/json"

	wp "github.com/SherClockHolmes/webpush-go"
)

// Notification is the JSON payload shown by the service worker.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	URL   string `json:"url,omitempty"`
}

// Subscription mirrors the browser PushSubscription keys.
type Subscription struct {
	Endpoint string
	P256DH   string
	Auth     string
}

// Sender pushes notifications to subscribed browsers.
type Sender struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string // mailto: or https: contact for the push service
	TTL             int
}

func NewSender(publicKey, privateKey, subject string) *Sender {
	return &Sender{VAPIDPublicKey: publicKey, VAPIDPrivateKey: privateKey, Subject: subject, TTL: 3600}
}

// Configured reports whether VAPID keys are present.
func (s *Sender) Configured() bool {
	return s.VAPIDPublicKey != "" && s.VAPIDPrivateKey != ""
}

// Send delivers n to sub. The returned status code is the push service's
// HTTP status; 404 and 410 mean the subscription is gone and should be
// pruned by the caller.
func (s *Sender) Send(ctx context.Context, sub Subscription, n Notification) (int, error) {
	body, err := json.Marshal(n)
	if err != nil {
		return 0, err
	}
	resp, err := wp.SendNotificationWithContext(ctx, body, &wp.Subscription{
		Endpoint: sub.Endpoint,
		Keys: wp.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}, &wp.Options{
		Subscriber:      s.Subject,
		VAPIDPublicKey:  s.VAPIDPublicKey,
		VAPIDPrivateKey: s.VAPIDPrivateKey,
		TTL:             s.TTL,
	})
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode, nil
}

// SubscriptionGone reports whether the push service says the endpoint no
// longer exists.
func SubscriptionGone(status int) bool {
	return status == 404 || status == 410
}
