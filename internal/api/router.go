package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/maheshrc27/postflow/internal/api/handlers"
	"github.com/maheshrc27/postflow/internal/api/middleware"
	"github.com/maheshrc27/postflow/internal/logger"
)

// Router carries everything the HTTP surface needs.
type Router struct {
	Post           *handlers.PostHandler
	Platform       *handlers.PlatformHandler
	Sweep          *handlers.SweepHandler
	Auth           *middleware.AuthMiddleware
	ServiceRoleKey string
	FrontendURL    string
}

func NewApp(r Router) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:   "postflow",
		BodyLimit: 60 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				logger.L().Errorf("%s %s: %v", c.Method(), c.Path(), err)
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     r.FrontendURL,
		AllowCredentials: true,
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	internal := app.Group("/internal", middleware.ServiceRole(r.ServiceRoleKey))
	internal.Post("/sweep", r.Sweep.Sweep)

	api := app.Group("/api", r.Auth.AuthMiddleware())

	api.Post("/posts", r.Post.CreatePost)
	api.Get("/posts", r.Post.ListPosts)
	api.Get("/posts/:id", r.Post.GetPost)
	api.Delete("/posts/:id", r.Post.RemovePost)

	api.Get("/accounts", r.Platform.ListSocialAccounts)
	api.Delete("/accounts/:id", r.Platform.DeleteSocialAccount)

	return app
}
