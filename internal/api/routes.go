package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/crosspost/internal/api/handlers"
)

type Handlers struct {
	Posts       *handlers.PostHandler
	Queue       *handlers.QueueHandler
	Schedule    *handlers.ScheduleHandler
	Platforms   *handlers.PlatformHandler
	Connections *handlers.ConnectionHandler
}

// Register mounts every route under /api behind auth.
func Register(app *fiber.App, h Handlers, auth fiber.Handler) {
	api := app.Group("/api")
	api.Use(auth)

	api.Post("/posts/publish", h.Posts.Publish)
	api.Post("/posts/schedule", h.Posts.Schedule)
	api.Get("/posts/:id/report", h.Posts.Report)

	api.Post("/queue/drain", h.Queue.Drain)
	api.Post("/queue/retry", h.Queue.Retry)
	api.Post("/queue/:id/cancel", h.Queue.Cancel)

	api.Get("/schedule/optimal", h.Schedule.Optimal)
	api.Get("/schedule/staggered", h.Schedule.Staggered)

	api.Get("/platforms", h.Platforms.ListPlatforms)
	api.Put("/platforms/:platform/config", h.Platforms.UpdateConfig)
	api.Get("/circuits", h.Platforms.ListCircuits)
	api.Post("/circuits/:platform/reset", h.Platforms.ResetCircuit)

	api.Post("/connections", h.Connections.Connect)
	api.Delete("/connections/:platform", h.Connections.Disconnect)
	api.Post("/users/cleanup", h.Connections.Cleanup)
}
