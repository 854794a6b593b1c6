package training

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/utils"
)

type TrainingController struct {
	Service TrainingService
}

func NewTrainingController(service TrainingService) *TrainingController {
	return &TrainingController{Service: service}
}

// CreateAssignment godoc
// @Summary Assign a training course to a user
// @Tags training
// @Accept json
// @Produce json
// @Param assignment body TrainingAssignment true "Assignment"
// @Success 201 {object} TrainingAssignment
// @Router /api/training/assignments [post]
func (c *TrainingController) CreateAssignment(ctx *fiber.Ctx) error {
	var assignment TrainingAssignment
	if err := ctx.BodyParser(&assignment); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if assignment.AssignedBy == "" {
		if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
			assignment.AssignedBy = claims.UserID
		}
	}
	if err := c.Service.Assign(ctx.Context(), &assignment); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(assignment)
}

func (c *TrainingController) ListAssignments(ctx *fiber.Ctx) error {
	assignments, err := c.Service.List(ctx.Context(), ctx.Query("user_id"), ctx.Query("department"), ctx.Query("status"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(assignments)
}

type completeRequest struct {
	Score *float64 `json:"score,omitempty"`
}

func (c *TrainingController) CompleteAssignment(ctx *fiber.Ctx) error {
	var req completeRequest
	if err := ctx.BodyParser(&req); err != nil && len(ctx.Body()) > 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	assignment, err := c.Service.Complete(ctx.Context(), ctx.Params("id"), req.Score)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(assignment)
}

type waiveRequest struct {
	Reason string `json:"reason"`
}

func (c *TrainingController) WaiveAssignment(ctx *fiber.Ctx) error {
	var req waiveRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	assignment, err := c.Service.Waive(ctx.Context(), ctx.Params("id"), req.Reason)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(assignment)
}

// Summary godoc
// @Summary Training completion summary
// @Tags training
// @Produce json
// @Param department query string false "Scope to a department"
// @Success 200 {object} TrainingSummary
// @Router /api/training/summary [get]
func (c *TrainingController) Summary(ctx *fiber.Ctx) error {
	summary, err := c.Service.Summary(ctx.Context(), ctx.Query("department"))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(summary)
}
