package handlers

import (
	"github.com/gofiber/fiber/v2"
	"postpipe/internal/classifier"
	"postpipe/internal/models"
	"postpipe/internal/service"
	"postpipe/internal/transfer"
)

type IntakeHandler struct {
	s service.IntakeService
}

func NewIntakeHandler(s service.IntakeService) *IntakeHandler {
	return &IntakeHandler{s: s}
}

// Submit is the generic single-shot endpoint: platform comes from the
// body or from content length, and only the platform maxima apply.
func (h *IntakeHandler) Submit(c *fiber.Ctx) error {
	return h.submit(c, "")
}

// SubmitX, SubmitNote, and SubmitWordpress fix the destination and apply
// the stricter per-platform variant bounds.
func (h *IntakeHandler) SubmitX(c *fiber.Ctx) error {
	return h.submit(c, models.PlatformX)
}

func (h *IntakeHandler) SubmitNote(c *fiber.Ctx) error {
	return h.submit(c, models.PlatformNote)
}

func (h *IntakeHandler) SubmitWordpress(c *fiber.Ctx) error {
	return h.submit(c, models.PlatformWordpress)
}

func (h *IntakeHandler) submit(c *fiber.Ctx, fixedPlatform string) error {
	var req transfer.IntakeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	bounds := classifier.GenericBounds
	if fixedPlatform != "" {
		bounds = classifier.VariantBounds
	}

	resp, err := h.s.SubmitSingle(c.Context(), &req, bounds, fixedPlatform)
	if err != nil {
		return renderError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

// SubmitChunk accepts one fragment of a chunked submission and returns
// either a progress report or the completed post.
func (h *IntakeHandler) SubmitChunk(c *fiber.Ctx) error {
	var req transfer.ChunkRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	result, err := h.s.SubmitChunk(c.Context(), &req)
	if err != nil {
		return renderError(c, err)
	}

	if result.Progress != nil {
		return c.Status(fiber.StatusOK).JSON(result.Progress)
	}
	return c.Status(fiber.StatusOK).JSON(result.Complete)
}
