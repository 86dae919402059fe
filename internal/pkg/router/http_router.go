package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/recapfood/recap-food-api/app/controllers"
	"github.com/recapfood/recap-food-api/internal/pkg/constants"
	"github.com/recapfood/recap-food-api/internal/pkg/middleware"
	"github.com/recapfood/recap-food-api/internal/pkg/oauth"
	"github.com/recapfood/recap-food-api/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// init S3 photo storage
	controllers.InitPhotoStorage()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	h.registerPublicRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	// Auth
	app.Post("/register", controllers.HandleRegister)
	app.Get("/activate", controllers.HandleActivate)
	app.Post("/login", controllers.HandleLogin)
	app.Post("/logout", middleware.RequireAuth, controllers.HandleLogout)

	// Social OAuth
	app.Get("/auth/:provider", controllers.HandleOAuthLogin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)

	// Checkout browser landings
	app.Get(constants.SubscriptionSuccessRoute, middleware.RequireAuth, controllers.HandleCheckoutSuccess)
	app.Get(constants.SubscriptionRoute+"/cancel", middleware.RequireAuth, controllers.HandleCheckoutCancel)

	// Billing provider webhooks (signature-verified in controller)
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}
