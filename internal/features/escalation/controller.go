package escalation

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/utils"
)

type EscalationController struct {
	Service EscalationService
}

func NewEscalationController(service EscalationService) *EscalationController {
	return &EscalationController{Service: service}
}

// CreateWorkflow godoc
// @Summary Create an escalation workflow
// @Tags escalation
// @Accept json
// @Produce json
// @Param workflow body EscalationWorkflow true "Workflow definition"
// @Success 201 {object} EscalationWorkflow
// @Router /api/escalations/workflows [post]
func (c *EscalationController) CreateWorkflow(ctx *fiber.Ctx) error {
	var workflow EscalationWorkflow
	if err := ctx.BodyParser(&workflow); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	workflow.CreatedBy = actorID(ctx)
	if err := c.Service.CreateWorkflow(ctx.Context(), &workflow); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(workflow)
}

func (c *EscalationController) ListWorkflows(ctx *fiber.Ctx) error {
	workflows, err := c.Service.ListWorkflows(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(workflows)
}

func (c *EscalationController) GetWorkflow(ctx *fiber.Ctx) error {
	workflow, err := c.Service.GetWorkflow(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "workflow not found"})
	}
	return ctx.JSON(workflow)
}

func (c *EscalationController) UpdateWorkflow(ctx *fiber.Ctx) error {
	var workflow EscalationWorkflow
	if err := ctx.BodyParser(&workflow); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := c.Service.UpdateWorkflow(ctx.Context(), ctx.Params("id"), &workflow); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(workflow)
}

func (c *EscalationController) DeleteWorkflow(ctx *fiber.Ctx) error {
	if err := c.Service.DeleteWorkflow(ctx.Context(), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(fiber.Map{"message": "workflow deleted"})
}

type startExecutionRequest struct {
	WorkflowID    string `json:"workflow_id"`
	SubjectModule string `json:"subject_module"`
	SubjectID     string `json:"subject_id"`
}

// StartExecution godoc
// @Summary Start an escalation workflow execution
// @Tags escalation
// @Accept json
// @Produce json
// @Param request body startExecutionRequest true "Execution target"
// @Success 201 {object} WorkflowExecution
// @Router /api/escalations/executions [post]
func (c *EscalationController) StartExecution(ctx *fiber.Ctx) error {
	var req startExecutionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	execution, err := c.Service.StartExecution(ctx.Context(), req.WorkflowID, req.SubjectModule, req.SubjectID, actorID(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(execution)
}

func (c *EscalationController) ListExecutions(ctx *fiber.Ctx) error {
	executions, err := c.Service.ListExecutions(ctx.Context(), ctx.Query("status"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(executions)
}

func (c *EscalationController) GetExecution(ctx *fiber.Ctx) error {
	execution, err := c.Service.GetExecution(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "execution not found"})
	}
	return ctx.JSON(execution)
}

type decisionRequest struct {
	Comment string `json:"comment"`
}

func (c *EscalationController) Approve(ctx *fiber.Ctx) error {
	var req decisionRequest
	_ = ctx.BodyParser(&req)
	execution, err := c.Service.Approve(ctx.Context(), ctx.Params("id"), actorID(ctx), req.Comment)
	if err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execution)
}

func (c *EscalationController) Reject(ctx *fiber.Ctx) error {
	var req decisionRequest
	_ = ctx.BodyParser(&req)
	execution, err := c.Service.Reject(ctx.Context(), ctx.Params("id"), actorID(ctx), req.Comment)
	if err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execution)
}

func (c *EscalationController) Cancel(ctx *fiber.Ctx) error {
	var req decisionRequest
	_ = ctx.BodyParser(&req)
	execution, err := c.Service.Cancel(ctx.Context(), ctx.Params("id"), actorID(ctx), req.Comment)
	if err != nil {
		return ctx.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execution)
}

func (c *EscalationController) PendingApprovals(ctx *fiber.Ctx) error {
	requests, err := c.Service.PendingApprovals(ctx.Context())
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(requests)
}

func actorID(ctx *fiber.Ctx) string {
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return "system"
}
