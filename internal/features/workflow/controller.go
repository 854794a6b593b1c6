package workflow

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/condition"
	"go-qms/pkg/utils"
)

type WorkflowController struct {
	Service WorkflowService
}

func NewWorkflowController(service WorkflowService) *WorkflowController {
	return &WorkflowController{Service: service}
}

// CreateDefinition godoc
// @Summary Create a workflow definition
// @Tags workflows
// @Accept json
// @Produce json
// @Param workflow body WorkflowDefinition true "Workflow definition"
// @Success 201 {object} WorkflowDefinition
// @Router /api/workflows [post]
func (c *WorkflowController) CreateDefinition(ctx *fiber.Ctx) error {
	var definition WorkflowDefinition
	if err := ctx.BodyParser(&definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		definition.CreatedBy = claims.UserID
	}
	if err := c.Service.CreateDefinition(ctx.Context(), &definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(definition)
}

func (c *WorkflowController) ListDefinitions(ctx *fiber.Ctx) error {
	definitions, err := c.Service.ListDefinitions(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(definitions)
}

func (c *WorkflowController) GetDefinition(ctx *fiber.Ctx) error {
	definition, err := c.Service.GetDefinition(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow not found"})
	}
	return ctx.JSON(definition)
}

func (c *WorkflowController) UpdateDefinition(ctx *fiber.Ctx) error {
	var definition WorkflowDefinition
	if err := ctx.BodyParser(&definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateDefinition(ctx.Context(), ctx.Params("id"), &definition); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(definition)
}

func (c *WorkflowController) DeleteDefinition(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteDefinition(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "workflow deleted"})
}

type runRequest struct {
	Context *condition.Context `json:"context"`
}

// Run godoc
// @Summary Execute a workflow
// @Tags workflows
// @Accept json
// @Produce json
// @Param request body runRequest true "Evaluation context"
// @Success 200 {object} WorkflowRun
// @Router /api/workflows/{id}/run [post]
func (c *WorkflowController) Run(ctx *fiber.Ctx) error {
	var req runRequest
	_ = ctx.BodyParser(&req)

	triggeredBy := "api"
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		triggeredBy = claims.UserID
	}

	run, err := c.Service.Run(ctx.Context(), ctx.Params("id"), triggeredBy, req.Context)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(run)
}

func (c *WorkflowController) ListRuns(ctx *fiber.Ctx) error {
	limit := int64(ctx.QueryInt("limit", 50))
	runs, err := c.Service.ListRuns(ctx.Context(), ctx.Query("workflow_id"), limit)
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(runs)
}

func (c *WorkflowController) GetRun(ctx *fiber.Ctx) error {
	run, err := c.Service.GetRun(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "run not found"})
	}
	return ctx.JSON(run)
}
