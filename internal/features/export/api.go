package export

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ExportApi struct {
	controller *ExportController
	config     *config.Config
}

func NewExportApi(controller *ExportController, config *config.Config) *ExportApi {
	return &ExportApi{
		controller: controller,
		config:     config,
	}
}

func (h *ExportApi) Setup(app *fiber.App) {
	exports := app.Group("/api/exports",
		middleware.AuthMiddleware(h.config.SkipAuth),
		middleware.RequireRole(h.config.SkipAuth, "admin"))

	exports.Post("/", h.controller.CreateSetting)
	exports.Get("/", h.controller.ListSettings)
	exports.Get("/:id", h.controller.GetSetting)
	exports.Put("/:id", h.controller.UpdateSetting)
	exports.Delete("/:id", h.controller.DeleteSetting)
	exports.Post("/:id/run", h.controller.RunExport)
	exports.Get("/:id/runs", h.controller.ListRuns)
}
