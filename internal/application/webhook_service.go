package application

import (
	"context"
	"errors"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/sirupsen/logrus"

	"github.com/lowzingo/members-api/internal/domain/entity"
	repo "github.com/lowzingo/members-api/internal/domain/repository"
	"github.com/lowzingo/members-api/internal/webhook"
	"github.com/lowzingo/members-api/pkg/helpers"
	"github.com/lowzingo/members-api/pkg/mailer"
	mailtpl "github.com/lowzingo/members-api/pkg/mailer/templates"
)

// ErrProductNotFound is returned when no product matches a webhook routing
// secret or a product id named in a generic order.
var ErrProductNotFound = errors.New("product not found")

// Actions reported back to the sending platform. Every action is an
// acknowledged outcome: platforms redeliver on error responses, so only
// classification failures and store failures are surfaced as errors.
const (
	ActionUserCreated      = "user_created"
	ActionAccessGranted    = "access_granted"
	ActionAlreadyHasAccess = "already_has_access"
	ActionAccessRemoved    = "access_removed"
	ActionUserNotFound     = "user_not_found"
	ActionIgnored          = "ignored"
)

// WebhookResult is the reconciler's verdict for one delivery.
type WebhookResult struct {
	Action      string
	UserEmail   string
	ProductName string
}

// WebhookService reconciles normalized payment events against the member
// store. All entitlement writes go through the repository's atomic
// primitives; the service itself never read-modify-writes the set.
type WebhookService struct {
	Users          repo.UserRepository
	Products       repo.ProductRepository
	Credentials    helpers.CredentialGenerator
	MailQueue      *helpers.RabbitPublisher
	Logger         *logrus.Logger
	ES             *elasticsearch.Client
	ESMembersIndex string
	LoginURL       string

	// Now is the clock used for grant timestamps. Nil means time.Now.
	Now func() time.Time
}

func NewWebhookService(users repo.UserRepository, products repo.ProductRepository, creds helpers.CredentialGenerator, mailQueue *helpers.RabbitPublisher, logger *logrus.Logger, es *elasticsearch.Client, esIndex, loginURL string) *WebhookService {
	return &WebhookService{
		Users:          users,
		Products:       products,
		Credentials:    creds,
		MailQueue:      mailQueue,
		Logger:         logger,
		ES:             es,
		ESMembersIndex: esIndex,
		LoginURL:       loginURL,
	}
}

func (s *WebhookService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// ResolveProduct looks up the product addressed by a webhook routing secret.
func (s *WebhookService) ResolveProduct(ctx context.Context, secret string) (*entity.Product, error) {
	p, err := s.Products.GetByWebhookSecret(ctx, secret)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return p, err
}

// Process normalizes a raw delivery for product and applies it.
// Normalization failures pass through typed so the handler can map them to
// status codes.
func (s *WebhookService) Process(ctx context.Context, product *entity.Product, body []byte) (*WebhookResult, error) {
	ev, err := webhook.Normalize(body, product.EnabledPlatforms)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, product, ev)
}

// Apply reconciles one canonical event. Reapplying the same event any
// number of times converges on the same store state.
func (s *WebhookService) Apply(ctx context.Context, product *entity.Product, ev *webhook.Event) (*WebhookResult, error) {
	log := s.Logger.WithFields(logrus.Fields{
		"product":  product.Name,
		"platform": ev.Platform,
		"event":    ev.Signal,
	})

	switch ev.Kind {
	case webhook.KindRevoke:
		if !product.EnableAccessRemoval {
			log.Info("revocation event ignored, access removal disabled")
			return &WebhookResult{Action: ActionIgnored, UserEmail: ev.Email, ProductName: product.Name}, nil
		}
		return s.revoke(ctx, product, ev, log)
	case webhook.KindGrant:
		return s.grant(ctx, product, ev, log)
	default:
		log.Info("unrecognized event signal acknowledged without action")
		return &WebhookResult{Action: ActionIgnored, UserEmail: ev.Email, ProductName: product.Name}, nil
	}
}

func (s *WebhookService) revoke(ctx context.Context, product *entity.Product, ev *webhook.Event, log *logrus.Entry) (*WebhookResult, error) {
	u, err := s.Users.GetByEmail(ctx, ev.Email)
	if errors.Is(err, repo.ErrNotFound) {
		log.Info("nothing to revoke, user unknown")
		return &WebhookResult{Action: ActionUserNotFound, UserEmail: ev.Email, ProductName: product.Name}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.Users.RevokeProduct(ctx, u.ID, product.ID); err != nil {
		return nil, err
	}
	log.WithField("user_id", u.ID).Info("access removed")
	s.reindex(ctx, u.ID)
	return &WebhookResult{Action: ActionAccessRemoved, UserEmail: ev.Email, ProductName: product.Name}, nil
}

func (s *WebhookService) grant(ctx context.Context, product *entity.Product, ev *webhook.Event, log *logrus.Entry) (*WebhookResult, error) {
	u, err := s.Users.GetByEmail(ctx, ev.Email)
	switch {
	case err == nil:
		if u.HasProduct(product.ID) {
			log.WithField("user_id", u.ID).Info("duplicate grant, user already entitled")
			return &WebhookResult{Action: ActionAlreadyHasAccess, UserEmail: ev.Email, ProductName: product.Name}, nil
		}
		granted, err := s.Users.GrantProduct(ctx, u.ID, product.ID, ev.Phone, s.now())
		if err != nil {
			return nil, err
		}
		if !granted {
			// A concurrent delivery appended first.
			return &WebhookResult{Action: ActionAlreadyHasAccess, UserEmail: ev.Email, ProductName: product.Name}, nil
		}
		log.WithField("user_id", u.ID).Info("access granted")
		s.reindex(ctx, u.ID)
		return &WebhookResult{Action: ActionAccessGranted, UserEmail: ev.Email, ProductName: product.Name}, nil

	case errors.Is(err, repo.ErrNotFound):
		return s.createMember(ctx, product, ev, log)

	default:
		return nil, err
	}
}

func (s *WebhookService) createMember(ctx context.Context, product *entity.Product, ev *webhook.Event, log *logrus.Entry) (*WebhookResult, error) {
	tempPassword, err := s.Credentials.TempPassword()
	if err != nil {
		return nil, err
	}
	hash, err := helpers.HashPassword(tempPassword)
	if err != nil {
		return nil, err
	}

	u := &entity.User{
		Email:        ev.Email,
		PasswordHash: hash,
		FullName:     ev.FullName,
		Phone:        ev.Phone,
	}
	created, err := s.Users.CreateWithGrant(ctx, u, product.ID, s.now())
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, u.ID)

	if !created {
		// Lost the insert race: the other delivery's credential stands and
		// ours is discarded, so no welcome email goes out from here.
		log.WithField("user_id", u.ID).Info("access granted to concurrently created user")
		return &WebhookResult{Action: ActionAccessGranted, UserEmail: ev.Email, ProductName: product.Name}, nil
	}

	log.WithField("user_id", u.ID).Info("member created from webhook")
	s.sendWelcome(ctx, u, product, tempPassword)
	return &WebhookResult{Action: ActionUserCreated, UserEmail: ev.Email, ProductName: product.Name}, nil
}

// ApplyGenericOrder handles the secret-less CartPanda endpoint: the order
// names the product directly and only approval statuses grant access.
func (s *WebhookService) ApplyGenericOrder(ctx context.Context, order *webhook.GenericOrder) (*WebhookResult, error) {
	if webhook.ClassifySignal(order.Status) != webhook.KindGrant {
		return &WebhookResult{Action: ActionIgnored, UserEmail: order.CustomerEmail}, nil
	}

	product, err := s.Products.GetByID(ctx, order.ProductID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}

	u, err := s.Users.GetByEmail(ctx, order.CustomerEmail)
	if errors.Is(err, repo.ErrNotFound) {
		// The generic endpoint never creates accounts; it only attaches
		// purchases to existing members.
		return &WebhookResult{Action: ActionUserNotFound, UserEmail: order.CustomerEmail, ProductName: product.Name}, nil
	}
	if err != nil {
		return nil, err
	}
	if u.HasProduct(product.ID) {
		return &WebhookResult{Action: ActionAlreadyHasAccess, UserEmail: order.CustomerEmail, ProductName: product.Name}, nil
	}
	if _, err := s.Users.GrantProduct(ctx, u.ID, product.ID, "", s.now()); err != nil {
		return nil, err
	}
	s.reindex(ctx, u.ID)
	return &WebhookResult{Action: ActionAccessGranted, UserEmail: order.CustomerEmail, ProductName: product.Name}, nil
}

func (s *WebhookService) sendWelcome(ctx context.Context, u *entity.User, product *entity.Product, tempPassword string) {
	if s.MailQueue == nil {
		return
	}
	job := mailer.EmailJob{
		To:       u.Email,
		Template: mailtpl.WelcomeCredentials,
		Data: map[string]any{
			"FullName":     u.FullName,
			"Email":        u.Email,
			"TempPassword": tempPassword,
			"ProductName":  product.Name,
			"LoginURL":     s.LoginURL,
		},
	}
	if err := s.MailQueue.PublishJSON(ctx, job); err != nil {
		// The credential only lives in the queue; a publish failure means
		// the member must use password recovery.
		s.Logger.WithError(err).WithField("user_id", u.ID).Error("welcome email enqueue failed")
	}
}

func (s *WebhookService) reindex(ctx context.Context, userID string) {
	if s.ES == nil || userID == "" {
		return
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		s.Logger.WithError(err).WithField("user_id", userID).Warn("reindex fetch failed")
		return
	}
	indexMember(ctx, s.ES, s.ESMembersIndex, u, s.Logger)
}
