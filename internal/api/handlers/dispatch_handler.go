package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"postpipe/internal/dispatch"
)

type DispatchHandler struct {
	worker *dispatch.Worker
}

func NewDispatchHandler(worker *dispatch.Worker) *DispatchHandler {
	return &DispatchHandler{worker: worker}
}

// Trigger drives the scheduler worker. The action query parameter selects
// status, start, stop, or run; run executes one batch immediately and
// returns its summary.
func (h *DispatchHandler) Trigger(c *fiber.Ctx) error {
	action := c.Query("action", "run")

	switch action {
	case "status":
		enabled, err := h.worker.Status(c.Context())
		if err != nil {
			return renderError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":   true,
			"enabled":   enabled,
			"timestamp": time.Now().Format(time.RFC3339),
		})

	case "start":
		if err := h.worker.Start(c.Context()); err != nil {
			return renderError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "enabled": true})

	case "stop":
		if err := h.worker.Stop(c.Context()); err != nil {
			return renderError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true, "enabled": false})

	case "run":
		started := time.Now()
		summary, err := h.worker.RunOnce(c.Context())
		if err != nil {
			return renderError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"success":       true,
			"results":       summary,
			"executionTime": time.Since(started).Milliseconds(),
			"timestamp":     time.Now().Format(time.RFC3339),
		})

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "action must be one of status, start, stop, run",
		})
	}
}
