package recipient

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type RecipientApi struct {
	controller *RecipientController
	config     *config.Config
}

func NewRecipientApi(controller *RecipientController, config *config.Config) *RecipientApi {
	return &RecipientApi{
		controller: controller,
		config:     config,
	}
}

func (h *RecipientApi) Setup(app *fiber.App) {
	recipients := app.Group("/api/recipients", middleware.AuthMiddleware(h.config.SkipAuth))

	recipients.Post("/resolve", h.controller.Resolve)

	lists := recipients.Group("/lists", middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin"))
	lists.Post("/", h.controller.CreateList)
	lists.Get("/", h.controller.ListLists)
	lists.Put("/:id", h.controller.UpdateList)
	lists.Delete("/:id", h.controller.DeleteList)

	scripts := recipients.Group("/scripts", middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin"))
	scripts.Post("/", h.controller.CreateScript)
	scripts.Get("/", h.controller.ListScripts)
	scripts.Put("/:id", h.controller.UpdateScript)
	scripts.Delete("/:id", h.controller.DeleteScript)
}
