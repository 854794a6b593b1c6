package notification

import (
	"go-qms/internal/config"
	"go-qms/internal/middleware"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationApi struct {
	controller *NotificationController
	config     *config.Config
}

func NewNotificationApi(controller *NotificationController, config *config.Config) *NotificationApi {
	return &NotificationApi{
		controller: controller,
		config:     config,
	}
}

func (h *NotificationApi) Setup(app *fiber.App) {
	notifications := app.Group("/api/notifications", middleware.AuthMiddleware(h.config.SkipAuth))

	notifications.Get("/", h.controller.List)
	notifications.Get("/unread/count", h.controller.UnreadCount)
	notifications.Post("/:id/read", h.controller.MarkRead)
	notifications.Post("/read-all", h.controller.MarkAllRead)

	app.Get("/ws/notifications",
		middleware.AuthMiddleware(h.config.SkipAuth),
		websocket.New(h.controller.Stream))
}
