package quota

import (
	"strings"

	"github.com/nmarkov/adpulse/app/models"
)

// Unlimited marks plans without a request ceiling.
const Unlimited = -1

// planLimits maps each subscription plan to its per-cycle analysis request
// ceiling.
var planLimits = map[string]int{
	models.PLAN_FREE:       25,
	models.PLAN_STARTER:    200,
	models.PLAN_GROWTH:     400,
	models.PLAN_ENTERPRISE: Unlimited,
}

// LimitFor returns the request ceiling for a plan. Unknown plans get the
// Free ceiling.
func LimitFor(plan string) int {
	if limit, ok := planLimits[NormalizePlan(plan)]; ok {
		return limit
	}
	return planLimits[models.PLAN_FREE]
}

// NormalizePlan maps arbitrary plan spellings onto the canonical plan names.
func NormalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case strings.ToLower(models.PLAN_STARTER):
		return models.PLAN_STARTER
	case strings.ToLower(models.PLAN_GROWTH):
		return models.PLAN_GROWTH
	case strings.ToLower(models.PLAN_ENTERPRISE):
		return models.PLAN_ENTERPRISE
	default:
		return models.PLAN_FREE
	}
}
