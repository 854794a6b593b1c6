package notification

import (
	"go-qms/pkg/utils"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type NotificationController struct {
	Service NotificationService
	Hub     *Hub
}

func NewNotificationController(service NotificationService, hub *Hub) *NotificationController {
	return &NotificationController{
		Service: service,
		Hub:     hub,
	}
}

// List godoc
// @Summary List notifications for the current user
// @Tags notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param limit query int false "Maximum records to return"
// @Success 200 {array} Notification
// @Router /api/notifications [get]
func (h *NotificationController) List(ctx *fiber.Ctx) error {
	notifs, err := h.Service.List(ctx.Context(), actorID(ctx), ctx.QueryBool("unread"), int64(ctx.QueryInt("limit")))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list notifications",
		})
	}
	if notifs == nil {
		notifs = []Notification{}
	}
	return ctx.JSON(notifs)
}

func (h *NotificationController) UnreadCount(ctx *fiber.Ctx) error {
	count, err := h.Service.UnreadCount(ctx.Context(), actorID(ctx))
	if err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count notifications",
		})
	}
	return ctx.JSON(fiber.Map{"unread": count})
}

func (h *NotificationController) MarkRead(ctx *fiber.Ctx) error {
	if err := h.Service.MarkRead(ctx.Context(), actorID(ctx), ctx.Params("id")); err != nil {
		return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return ctx.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *NotificationController) MarkAllRead(ctx *fiber.Ctx) error {
	if err := h.Service.MarkAllRead(ctx.Context(), actorID(ctx)); err != nil {
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark notifications as read",
		})
	}
	return ctx.JSON(fiber.Map{"message": "All notifications marked as read"})
}

// Stream keeps the websocket open and pushes new notifications for the
// authenticated user until the client disconnects.
func (h *NotificationController) Stream(c *websocket.Conn) {
	userID := "system"
	if claims, ok := c.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		userID = claims.UserID
	}

	h.Hub.Register(userID, c)
	defer h.Hub.Unregister(userID, c)

	// Drain client frames; the stream is push-only.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

func actorID(ctx *fiber.Ctx) string {
	if claims, ok := ctx.Locals(utils.UserClaimsKey).(*utils.UserClaims); ok {
		return claims.UserID
	}
	return "system"
}
