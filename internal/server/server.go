package server

import (
	"log"
	"time"

	"claim-pipeline-be/internal/bootstrap"
	"claim-pipeline-be/internal/config"
	"claim-pipeline-be/internal/pkg/serverutils"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

// appConfig is the fiber setup shared by every listener.
func appConfig() fiber.Config {
	return fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB
		// Params and headers end up in sessions that outlive the request.
		Immutable: true,
		// SSE streams stay open for a whole run.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	app := fiber.New(appConfig())

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.App.CorsAllowedOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Last-Event-ID",
		AllowMethods:  "GET, POST, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Content-Type, X-Session-Id",
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
	log.Printf("Server is running on http://localhost:%s", s.cfg.App.Port)
	return s.app.Listen(":" + s.cfg.App.Port)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func registerRoutes(app *fiber.App, c *bootstrap.Container) {
	api := app.Group("/api")

	c.SystemController.RegisterRoutes(app, api)
	c.ClaimController.RegisterRoutes(api, c.AuthMiddleware)
	c.ProcessController.RegisterRoutes(api)
	c.SessionController.RegisterRoutes(api)

	c.StreamHandler.RegisterRoutes(app, api)
}
