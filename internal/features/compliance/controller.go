package compliance

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/condition"
	"go-qms/pkg/utils"
)

type ComplianceController struct {
	Service ComplianceService
}

func NewComplianceController(service ComplianceService) *ComplianceController {
	return &ComplianceController{Service: service}
}

// Assessment godoc
// @Summary Run a compliance assessment
// @Description Evaluates the rule catalog, optionally restricted to the given modules.
// @Tags compliance
// @Produce json
// @Param modules query string false "Comma-separated module list (audit, edms, lims, training, quality)"
// @Success 200 {object} Assessment
// @Router /api/compliance/assessment [get]
func (c *ComplianceController) Assessment(ctx *fiber.Ctx) error {
	var modules []string
	if raw := ctx.Query("modules"); raw != "" {
		for _, m := range strings.Split(raw, ",") {
			if m = strings.TrimSpace(m); m != "" {
				modules = append(modules, m)
			}
		}
	}

	generatedBy := "api"
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		generatedBy = claims.UserID
	}

	assessment, err := c.Service.RunAssessment(ctx.Context(), modules, generatedBy)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(assessment)
}

func (c *ComplianceController) ListAssessments(ctx *fiber.Ctx) error {
	limit := int64(ctx.QueryInt("limit", 20))
	assessments, err := c.Service.ListAssessments(ctx.Context(), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(assessments)
}

func (c *ComplianceController) ListRules(ctx *fiber.Ctx) error {
	return ctx.JSON(c.Service.ListRules())
}

type validateRequest struct {
	Condition *condition.Node    `json:"condition"`
	Context   *condition.Context `json:"context"`
}

// Validate godoc
// @Summary Evaluate a condition tree against a supplied context
// @Tags compliance
// @Accept json
// @Produce json
// @Param request body validateRequest true "Condition and context"
// @Success 200 {object} map[string]bool
// @Router /api/compliance/validate [post]
func (c *ComplianceController) Validate(ctx *fiber.Ctx) error {
	var req validateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Condition == nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "condition is required"})
	}
	return ctx.JSON(fiber.Map{"result": c.Service.Validate(req.Condition, req.Context)})
}
