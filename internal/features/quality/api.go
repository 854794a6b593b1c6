package quality

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type QualityApi struct {
	controller *QualityController
	config     *config.Config
}

func NewQualityApi(controller *QualityController, config *config.Config) *QualityApi {
	return &QualityApi{
		controller: controller,
		config:     config,
	}
}

func (h *QualityApi) Setup(app *fiber.App) {
	quality := app.Group("/api/quality", middleware.AuthMiddleware(h.config.SkipAuth))
	manage := middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin")

	events := quality.Group("/events")
	events.Post("/", h.controller.CreateEvent)
	events.Get("/", h.controller.ListEvents)
	events.Get("/:id", h.controller.GetEvent)
	events.Put("/:id/status", manage, h.controller.UpdateEventStatus)

	capas := quality.Group("/capas")
	capas.Post("/", manage, h.controller.CreateCAPA)
	capas.Get("/", h.controller.ListCAPAs)
	capas.Get("/:id", h.controller.GetCAPA)
	capas.Put("/:id/status", manage, h.controller.UpdateCAPAStatus)

	documents := quality.Group("/documents")
	documents.Post("/", manage, h.controller.CreateDocument)
	documents.Get("/", h.controller.ListDocuments)
	documents.Put("/:id", manage, h.controller.UpdateDocument)
}
