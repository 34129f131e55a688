package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"postpipe/internal/classifier"
	"postpipe/internal/service"
	"postpipe/internal/session"
)

// renderError maps service and validation errors onto the API's status
// codes: 400 for validation, 404 for missing resources, 409 for chunk and
// state conflicts, 500 for everything else.
func renderError(c *fiber.Ctx, err error) error {
	var ve *classifier.ValidationError
	if errors.As(err, &ve) {
		body := fiber.Map{"error": ve.Reason}
		if ve.MaxLength > 0 {
			body["maxLength"] = ve.MaxLength
		}
		if ve.MinLength > 0 {
			body["minLength"] = ve.MinLength
		}
		if ve.CurrentLength > 0 {
			body["currentLength"] = ve.CurrentLength
		}
		return c.Status(fiber.StatusBadRequest).JSON(body)
	}

	switch {
	case errors.Is(err, session.ErrPartConflict), errors.Is(err, session.ErrTotalPartsMismatch):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, session.ErrSessionNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrPostNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
