package system

import (
	"context"
	"time"

	"go-qms/internal/database"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	DB      *database.MongodbDB
	started time.Time
}

func NewHealthController(db *database.MongodbDB) *HealthController {
	return &HealthController{
		DB:      db,
		started: time.Now(),
	}
}

// Health godoc
// @Summary      Service health
// @Description  Reports process uptime and database reachability
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /healthz [get]
func (h *HealthController) Health(ctx *fiber.Ctx) error {
	pingCtx, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	overall, dbStatus := "ok", "ok"
	status := fiber.StatusOK
	if err := h.DB.DB.Client().Ping(pingCtx, nil); err != nil {
		overall, dbStatus = "degraded", "unreachable"
		status = fiber.StatusServiceUnavailable
	}

	return ctx.Status(status).JSON(fiber.Map{
		"status":   overall,
		"database": dbStatus,
		"uptime":   time.Since(h.started).String(),
	})
}
