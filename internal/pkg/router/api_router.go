package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/recapfood/recap-food-api/app/controllers"
	"github.com/recapfood/recap-food-api/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Public marketplace browse
	v1.Get("/listings", controllers.HandleBrowseListings)
	v1.Get("/listings/:uuid", controllers.HandleGetListing)

	// Authenticated marketplace operations
	listings := v1.Group("/my/listings", middleware.RequireAPISessionAuth)
	listings.Get("/", controllers.HandleGetMyListings)
	listings.Post("/", controllers.HandleCreateListing)
	listings.Put("/:uuid", controllers.HandleUpdateListing)
	listings.Patch("/:uuid/status", controllers.HandleUpdateListingStatus)
	listings.Delete("/:uuid", controllers.HandleDeleteListing)
	listings.Post("/:uuid/photos", controllers.HandleUploadListingPhoto)

	// Profile
	profile := v1.Group("/profile", middleware.RequireAPISessionAuth)
	profile.Get("/", controllers.HandleGetProfile)
	profile.Put("/", controllers.HandleUpdateProfile)
	profile.Post("/password", controllers.HandleChangePassword)

	// Billing lifecycle
	billing := v1.Group("/billing", middleware.RequireAPISessionAuth)
	billing.Get("/subscription", controllers.HandleGetSubscription)
	billing.Post("/checkout-session", controllers.HandleCreateCheckoutSession)
	billing.Get("/checkout-session/:id", controllers.HandleGetCheckoutSession)
	billing.Post("/portal-session", controllers.HandleCreatePortalSession)
	billing.Post("/cancel", controllers.HandleCancelSubscription)
	billing.Post("/enterprise-contact", controllers.HandleEnterpriseContact)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
