package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/recapfood/recap-food-api/app/repository"
	"github.com/recapfood/recap-food-api/internal/pkg/billing"
	"github.com/recapfood/recap-food-api/internal/pkg/cache"
	"github.com/recapfood/recap-food-api/internal/pkg/database"
	"github.com/recapfood/recap-food-api/internal/pkg/env"
	"github.com/recapfood/recap-food-api/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	repository.InitializeFactory(database.GetDB())
	if err := billing.SeedDefaultPriceMappings(database.GetDB()); err != nil {
		log.Printf("price mapping seed failed: %v", err)
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 25 * 1024 * 1024, // listing photos
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}
