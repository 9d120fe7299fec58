package server

import (
	"log"

	"aayush-bot/internal/bootstrap"
	"aayush-bot/internal/config"
	"aayush-bot/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.CollectorContainer
}

func New(cfg *config.Config, container *bootstrap.CollectorContainer) *Server {
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // transcripts are small
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Collector.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	app.Use(serverutils.ErrorHandlerMiddleware())

	registerRoutes(app, container)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	log.Printf("Collector is running on http://localhost:%s", s.cfg.Collector.Port)
	return s.app.Listen(":" + s.cfg.Collector.Port)
}

func registerRoutes(app *fiber.App, c *bootstrap.CollectorContainer) {
	api := app.Group("/api")

	c.UserController.RegisterRoutes(api)
	c.AdminController.RegisterRoutes(api)
}
