package report

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ReportApi struct {
	controller *ReportController
	config     *config.Config
}

func NewReportApi(controller *ReportController, config *config.Config) *ReportApi {
	return &ReportApi{
		controller: controller,
		config:     config,
	}
}

func (h *ReportApi) Setup(app *fiber.App) {
	reports := app.Group("/api/reports", middleware.AuthMiddleware(h.config.SkipAuth))
	manage := middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin")

	reports.Post("/", manage, h.controller.CreateReport)
	reports.Get("/", h.controller.ListReports)
	reports.Get("/:id", h.controller.GetReport)
	reports.Put("/:id", manage, h.controller.UpdateReport)
	reports.Delete("/:id", manage, h.controller.DeleteReport)
	reports.Get("/:id/run", h.controller.RunReport)
	reports.Get("/:id/export", h.controller.ExportReport)
}
