package middleware

import (
	"crypto/subtle"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	config "postpipe/configs"
)

const triggerHeader = "X-Trigger-Secret"

type TriggerMiddleware struct {
	cfg config.Config
}

func NewTriggerMiddleware(cfg config.Config) *TriggerMiddleware {
	if cfg.TriggerSecret == "" {
		slog.Warn("TRIGGER_SECRET is not set; dispatcher trigger accepts any caller")
	}
	return &TriggerMiddleware{cfg: cfg}
}

// TriggerAuth guards the dispatcher trigger with a shared secret. With a
// secret configured the check fails closed; with none configured the
// trigger is trusted by default to keep self-hosting friction low.
func (m *TriggerMiddleware) TriggerAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m.cfg.TriggerSecret == "" {
			return c.Next()
		}

		provided := c.Get(triggerHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(m.cfg.TriggerSecret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or missing trigger secret",
			})
		}
		return c.Next()
	}
}
