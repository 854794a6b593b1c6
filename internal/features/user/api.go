package user

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

type UserApi struct {
	controller *UserController
	config     *config.Config
}

func NewUserApi(controller *UserController, config *config.Config) *UserApi {
	return &UserApi{
		controller: controller,
		config:     config,
	}
}

func (h *UserApi) Setup(app *fiber.App) {
	users := app.Group("/api/users", middleware.AuthMiddleware(h.config.SkipAuth))

	users.Post("/", middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin"), h.controller.CreateUser)
	users.Get("/", h.controller.ListUsers)
	users.Get("/:id", h.controller.GetUser)
	users.Put("/:id", middleware.RequireRole(h.config.SkipAuth, "quality_manager", "admin"), h.controller.UpdateUser)
	users.Delete("/:id", middleware.RequireRole(h.config.SkipAuth, "admin"), h.controller.DeleteUser)
}
