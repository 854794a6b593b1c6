package lims

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/utils"
)

type LimsController struct {
	Service LimsService
}

func NewLimsController(service LimsService) *LimsController {
	return &LimsController{Service: service}
}

// RegisterSample godoc
// @Summary Register a lab sample
// @Tags lims
// @Accept json
// @Produce json
// @Param sample body Sample true "Sample"
// @Success 201 {object} Sample
// @Router /api/lims/samples [post]
func (c *LimsController) RegisterSample(ctx *fiber.Ctx) error {
	var sample Sample
	if err := ctx.BodyParser(&sample); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if sample.CollectedBy == "" {
		sample.CollectedBy = actorID(ctx)
	}
	if err := c.Service.RegisterSample(ctx.Context(), &sample); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(sample)
}

func (c *LimsController) GetSample(ctx *fiber.Ctx) error {
	sample, err := c.Service.GetSample(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "sample not found"})
	}
	return ctx.JSON(sample)
}

func (c *LimsController) ListSamples(ctx *fiber.Ctx) error {
	samples, err := c.Service.ListSamples(ctx.Context(), ctx.Query("status"), int64(ctx.QueryInt("limit")))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(samples)
}

// TransferCustody godoc
// @Summary Append a custody transfer to a sample's chain
// @Tags lims
// @Accept json
// @Produce json
// @Param id path string true "Sample ID"
// @Param entry body CustodyEntry true "Transfer"
// @Router /api/lims/samples/{id}/custody [post]
func (c *LimsController) TransferCustody(ctx *fiber.Ctx) error {
	var entry CustodyEntry
	if err := ctx.BodyParser(&entry); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if entry.FromActor == "" {
		entry.FromActor = actorID(ctx)
	}
	sample, err := c.Service.TransferCustody(ctx.Context(), ctx.Params("id"), entry)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(sample)
}

type sampleStatusRequest struct {
	Status string `json:"status"`
}

func (c *LimsController) UpdateSampleStatus(ctx *fiber.Ctx) error {
	var req sampleStatusRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	sample, err := c.Service.UpdateSampleStatus(ctx.Context(), ctx.Params("id"), req.Status)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(sample)
}

func (c *LimsController) CreateExecution(ctx *fiber.Ctx) error {
	var execution TestExecution
	if err := ctx.BodyParser(&execution); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if execution.Analyst == "" {
		execution.Analyst = actorID(ctx)
	}
	if err := c.Service.CreateExecution(ctx.Context(), &execution); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.Status(fiber.StatusCreated).JSON(execution)
}

func (c *LimsController) GetExecution(ctx *fiber.Ctx) error {
	execution, err := c.Service.GetExecution(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "execution not found"})
	}
	return ctx.JSON(execution)
}

func (c *LimsController) ListExecutions(ctx *fiber.Ctx) error {
	executions, err := c.Service.ListExecutions(ctx.Context(), ctx.Query("sample_id"), int64(ctx.QueryInt("limit")))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(executions)
}

// RecordResult godoc
// @Summary Record a test result
// @Description Evaluates the value against its specification limits; out-of-spec results open a quality event.
// @Tags lims
// @Accept json
// @Produce json
// @Param id path string true "Execution ID"
// @Param result body TestResult true "Result"
// @Router /api/lims/executions/{id}/results [post]
func (c *LimsController) RecordResult(ctx *fiber.Ctx) error {
	var result TestResult
	if err := ctx.BodyParser(&result); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if result.RecordedBy == "" {
		result.RecordedBy = actorID(ctx)
	}
	execution, err := c.Service.RecordResult(ctx.Context(), ctx.Params("id"), result)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execution)
}

func (c *LimsController) CompleteExecution(ctx *fiber.Ctx) error {
	execution, err := c.Service.CompleteExecution(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return ctx.JSON(execution)
}

func actorID(ctx *fiber.Ctx) string {
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return "system"
}
