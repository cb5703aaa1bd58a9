package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/nmarkov/adpulse/app/models"
	"github.com/nmarkov/adpulse/internal/pkg/insight"
	"github.com/nmarkov/adpulse/internal/pkg/metrics/counter"
	"github.com/nmarkov/adpulse/internal/pkg/usercontext"
)

// HandleAnalyze runs the AI analysis over the caller's selected datasets.
// The route is quota gated; a request that reaches this handler has
// already consumed one quota unit.
func HandleAnalyze(c *fiber.Ctx) error {
	var req insight.Request
	if err := c.BodyParser(&req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return jsonError(c, fiber.StatusBadRequest, "At least one platform selection is required")
	}

	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}
	req.Since = time.Now().AddDate(0, 0, -days)

	result, err := aggregator.Analyze(c.Context(), usercontext.GetUserID(c), req)
	if err != nil {
		switch {
		case errors.Is(err, insight.ErrNoPlatformsSelected):
			return jsonError(c, fiber.StatusBadRequest, "No platforms selected")
		case errors.Is(err, insight.ErrNoDataFound):
			return jsonError(c, fiber.StatusNotFound, "No data found for the selected platforms. Fetch data first.")
		case errors.Is(err, insight.ErrMalformedInsight):
			log.Printf("analysis returned malformed response: %v", err)
			return jsonError(c, fiber.StatusBadGateway, "The analysis service returned an unusable response")
		default:
			log.Printf("analysis failed: %v", err)
			return jsonError(c, fiber.StatusBadGateway, "Analysis failed")
		}
	}
	if err := counter.AddAnalysis(usercontext.GetUserID(c)); err != nil {
		log.Printf("analysis counter increment failed: %v", err)
	}
	return jsonOK(c, fiber.Map{
		"insight": result,
	})
}

// HandleRevenue returns the stored revenue dataset of a payments platform,
// or the order collection for Shopify.
func HandleRevenue(c *fiber.Ctx) error {
	platform := c.Params("platform")

	var analysisType string
	switch insight.FamilyOf(platform) {
	case insight.FamilyPayments:
		analysisType = "revenue"
	case insight.FamilyCommerce:
		analysisType = models.BundleOrders
	default:
		return jsonError(c, fiber.StatusBadRequest, "Platform has no revenue data")
	}

	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}
	since := time.Now().AddDate(0, 0, -days)

	raw, err := loader.Load(usercontext.GetUserID(c), platform, analysisType, since)
	if err != nil {
		log.Printf("revenue load failed for %s: %v", platform, err)
		return jsonError(c, fiber.StatusInternalServerError, "Could not load revenue data")
	}
	if raw == "" {
		raw = "[]"
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"platform": platform,
		"days":     days,
		"data":     json.RawMessage(raw),
	})
}
