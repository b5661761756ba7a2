package router

import (
	"github.com/lowzingo/members-api/internal/application"
	"github.com/lowzingo/members-api/internal/container"
	pginfra "github.com/lowzingo/members-api/internal/infrastructure/postgres"
	handlers "github.com/lowzingo/members-api/internal/interface/http"
	"github.com/lowzingo/members-api/internal/router/modules"
	"github.com/lowzingo/members-api/pkg/helpers"
)

// InitModules builds repositories, services and handlers from the container
// singletons and registers every feature module. Called once at startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	products := pginfra.NewProductRepository(pool)
	pushSubs := pginfra.NewPushSubscriptionRepository(pool)

	webhookSvc := application.NewWebhookService(
		users,
		products,
		helpers.RandomCredentials{},
		container.GetMailPub(),
		logger,
		container.GetES(),
		cfg.ESMembersIndex,
		cfg.LoginURL,
	)
	memberSvc := application.NewMemberService(
		users,
		container.GetJWT(),
		container.GetRedis(),
		logger,
		container.GetES(),
		cfg.ESMembersIndex,
	)
	catalogSvc := application.NewCatalogService(products, logger)
	mediaSvc := application.NewMediaService(container.GetGCS(), cfg.GCSBucket, logger)
	pushSvc := application.NewPushService(pushSubs, container.GetPushPub(), logger)

	webhookH := handlers.NewWebhookHandler(webhookSvc, logger)
	authH := handlers.NewAuthHandler(memberSvc, logger, cfg.CookieDomain, cfg.CookieSecure)
	memberH := handlers.NewMemberHandler(memberSvc, logger)
	courseH := handlers.NewCourseHandler(catalogSvc, memberSvc, logger)
	adminH := handlers.NewAdminHandler(memberSvc, logger)
	productH := handlers.NewProductHandler(catalogSvc, logger)
	mediaH := handlers.NewMediaHandler(mediaSvc, logger)
	pushH := handlers.NewPushHandler(pushSvc, cfg.VAPIDPublicKey, logger)

	jwt := container.GetJWT()
	r.Add(modules.NewWebhookModule(webhookH))
	r.Add(modules.NewAuthModule(authH, jwt))
	r.Add(modules.NewMemberModule(memberH, courseH, jwt))
	r.Add(modules.NewAdminModule(adminH, productH, mediaH, pushH, jwt))
	r.Add(modules.NewPushModule(pushH, jwt))
}
