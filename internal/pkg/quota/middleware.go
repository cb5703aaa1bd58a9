package quota

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

// Middleware gates a route behind the request quota. One admitted request
// consumes exactly one quota unit. Must run after the auth middleware.
func Middleware(gate *Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := usercontext.GetUserID(c)
		if userID == 0 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "Unauthorized. User not found.",
			})
		}

		if err := gate.Authorize(c.Context(), userID); err != nil {
			if errors.Is(err, ErrQuotaExceeded) {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"success": false,
					"error":   "Request limit exceeded. Upgrade your plan to continue.",
				})
			}
			log.Printf("quota gate failed for user %d: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"error":   "Internal server error.",
			})
		}

		return c.Next()
	}
}
