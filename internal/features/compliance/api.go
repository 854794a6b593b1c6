package compliance

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type ComplianceApi struct {
	controller *ComplianceController
	config     *config.Config
}

func NewComplianceApi(controller *ComplianceController, config *config.Config) *ComplianceApi {
	return &ComplianceApi{
		controller: controller,
		config:     config,
	}
}

func (h *ComplianceApi) Setup(app *fiber.App) {
	compliance := app.Group("/api/compliance", middleware.AuthMiddleware(h.config.SkipAuth))

	compliance.Get("/rules", h.controller.ListRules)
	compliance.Get("/assessment", h.controller.Assessment)
	compliance.Get("/assessments", h.controller.ListAssessments)
	compliance.Post("/validate", h.controller.Validate)
}
