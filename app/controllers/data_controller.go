package controllers

import (
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/internal/pkg/insight"
	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

// HandleGetData returns the stored dataset of one platform and analysis
// type, windowed by the days query parameter.
func HandleGetData(c *fiber.Ctx) error {
	platform := c.Params("platform")
	analysisType := c.Params("analysisType")
	if insight.FamilyOf(platform) == "" {
		return jsonError(c, fiber.StatusNotFound, "Unknown platform")
	}

	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	raw, err := loader.Load(usercontext.GetUserID(c), platform, analysisType, since)
	if err != nil {
		log.Printf("data load failed for %s/%s: %v", platform, analysisType, err)
		return jsonError(c, fiber.StatusInternalServerError, "Could not load dataset")
	}
	if raw == "" {
		raw = "[]"
	}
	return c.JSON(fiber.Map{
		"success":      true,
		"platform":     platform,
		"analysisType": analysisType,
		"days":         days,
		"data":         json.RawMessage(raw),
	})
}
