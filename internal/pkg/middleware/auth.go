package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/env"
	"github.com/nmarkov/adpulse/internal/pkg/security"
	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

// RequireAuth authenticates requests carrying a bearer access token, loads
// the user and stores the identity in the request context. Returns JSON 401
// when the token is missing, invalid or points at a deleted user.
func RequireAuth(c *fiber.Ctx) error {
	token := extractBearerToken(c)
	if token == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Access denied. No token provided",
		})
	}

	claims, err := security.VerifyAccessToken(token, env.GetEnv("JWT_SECRET", ""))
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid or expired token",
		})
	}

	repo := repository.GetGlobalFactory().GetUserRepository()
	user, err := repo.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"error":   "User no longer exists",
			})
		}
		log.Printf("auth middleware: user lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "Authentication failed",
		})
	}

	usercontext.SetUserContext(c, usercontext.UserContext{
		UserID:     user.ID,
		Email:      user.Email,
		IsLoggedIn: true,
		IsAdmin:    user.Role == models.ROLE_ADMIN,
		Plan:       user.Plan,
	})

	return c.Next()
}

// RequireAdmin ensures the authenticated caller has the admin role.
// Must run after RequireAuth.
func RequireAdmin(c *fiber.Ctx) error {
	if !usercontext.GetUserContext(c).IsAdmin {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"error":   "Admin access required",
		})
	}
	return c.Next()
}

func extractBearerToken(c *fiber.Ctx) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		// OAuth redirect entry points cannot set headers from the browser;
		// they pass the bearer token as a query parameter instead.
		return strings.TrimSpace(c.Query("token"))
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
