package recipient

import (
	"github.com/gofiber/fiber/v2"

	"go-qms/pkg/condition"
)

type RecipientController struct {
	Service ResolverService
}

func NewRecipientController(service ResolverService) *RecipientController {
	return &RecipientController{Service: service}
}

type resolveRequest struct {
	Specs   []string           `json:"specs"`
	Context *condition.Context `json:"context"`
}

// Resolve godoc
// @Summary Expand recipient specs into concrete addresses
// @Tags recipients
// @Accept json
// @Produce json
// @Router /api/recipients/resolve [post]
func (ctrl *RecipientController) Resolve(c *fiber.Ctx) error {
	var input resolveRequest
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	addrs := ctrl.Service.Resolve(c.UserContext(), input.Specs, input.Context)
	return c.JSON(fiber.Map{"recipients": addrs})
}

func (ctrl *RecipientController) CreateList(c *fiber.Ctx) error {
	var input DistributionList
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.CreateList(c.UserContext(), &input); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(input)
}

func (ctrl *RecipientController) ListLists(c *fiber.Ctx) error {
	lists, err := ctrl.Service.ListLists(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(lists)
}

func (ctrl *RecipientController) UpdateList(c *fiber.Ctx) error {
	var input DistributionList
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.UpdateList(c.UserContext(), c.Params("id"), &input); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "List updated successfully"})
}

func (ctrl *RecipientController) DeleteList(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteList(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *RecipientController) CreateScript(c *fiber.Ctx) error {
	var input RecipientScript
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.CreateScript(c.UserContext(), &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(input)
}

func (ctrl *RecipientController) ListScripts(c *fiber.Ctx) error {
	scripts, err := ctrl.Service.ListScripts(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(scripts)
}

func (ctrl *RecipientController) UpdateScript(c *fiber.Ctx) error {
	var input RecipientScript
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.UpdateScript(c.UserContext(), c.Params("id"), &input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "Script updated successfully"})
}

func (ctrl *RecipientController) DeleteScript(c *fiber.Ctx) error {
	if err := ctrl.Service.DeleteScript(c.UserContext(), c.Params("id")); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
