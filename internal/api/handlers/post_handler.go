package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"postpipe/internal/service"
	"postpipe/internal/transfer"
)

type PostHandler struct {
	posts service.PostService
	bulk  service.BulkService
}

func NewPostHandler(posts service.PostService, bulk service.BulkService) *PostHandler {
	return &PostHandler{posts: posts, bulk: bulk}
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	posts, err := h.posts.List(c.Context())
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) PostInfo(c *fiber.Ctx) error {
	post, err := h.posts.Info(c.Context(), c.Params("id"))
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) RemovePost(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
	}

	if err := h.posts.Remove(c.Context(), id); err != nil {
		return renderError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) UnschedulePost(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
	}

	if err := h.posts.Unschedule(c.Context(), id); err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"success": true})
}

func (h *PostHandler) PublishPost(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id is required"})
	}

	post, err := h.posts.PublishNow(c.Context(), id)
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) BulkSchedule(c *fiber.Ctx) error {
	var req transfer.BulkScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if len(req.PostIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "postIds is required"})
	}
	if req.IntervalMinutes <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "intervalMinutes must be positive"})
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid startTime"})
	}

	resp, err := h.bulk.Schedule(c.Context(), req.PostIDs, start, time.Duration(req.IntervalMinutes)*time.Minute)
	if err != nil {
		return renderError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}
