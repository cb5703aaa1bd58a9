package controllers

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/app/repository"
	"github.com/nmarkov/adpulse/internal/pkg/quota"
	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

// HandleDashboard summarizes the account: plan, quota usage and connected
// platforms.
func HandleDashboard(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)
	repos := repository.GetGlobalFactory().GetRepositories()

	user, err := repos.User.GetByID(userID)
	if err != nil {
		log.Printf("dashboard: user lookup failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Could not load dashboard")
	}
	platforms, err := repos.User.ListPlatforms(userID)
	if err != nil {
		log.Printf("dashboard: platform listing failed: %v", err)
		return jsonError(c, fiber.StatusInternalServerError, "Could not load dashboard")
	}
	if platforms == nil {
		platforms = []string{}
	}

	limit := quota.LimitFor(user.Plan)
	usage := fiber.Map{
		"used":      user.RequestCount,
		"limit":     limit,
		"unlimited": limit == quota.Unlimited,
	}
	if user.SubscriptionExpiresAt != nil {
		usage["cycle_resets_at"] = user.SubscriptionExpiresAt.Format(time.RFC3339)
	}

	return jsonOK(c, fiber.Map{
		"user":      userPayload(user),
		"platforms": platforms,
		"usage":     usage,
		"activity": fiber.Map{
			"fetches":  user.FetchCount,
			"analyses": user.AnalysisCount,
		},
	})
}
