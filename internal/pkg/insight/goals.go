package insight

// Platform families. The analysis goal depends on the kind of data a
// platform produces, not on the individual platform.
const (
	FamilyAds       = "ads"
	FamilyAnalytics = "analytics"
	FamilyCommerce  = "commerce"
	FamilyPayments  = "payments"
)

// defaultGoal is used when no table entry matches the selection.
const defaultGoal = "Analyze this dataset and provide actionable insights."

var platformFamilies = map[string]string{
	"facebook":  FamilyAds,
	"googleAds": FamilyAds,
	"linkedin":  FamilyAds,
	"tiktok":    FamilyAds,
	"twitter":   FamilyAds,
	"analytics": FamilyAnalytics,
	"shopify":   FamilyCommerce,
	"stripe":    FamilyPayments,
	"paypal":    FamilyPayments,
	"square":    FamilyPayments,
}

// FamilyOf maps a platform name to its family, empty string for unknown
// platforms.
func FamilyOf(platform string) string {
	return platformFamilies[platform]
}

var goals = map[string]map[string]string{
	FamilyAds: {
		"performance": "Evaluate the advertising performance of these campaigns. Identify the best and worst performing ads by spend efficiency, click-through rate and conversions, and recommend budget reallocations.",
		"audience":    "Analyze which audiences and placements these ads reach most effectively. Point out saturation, fatigue and untapped segments.",
		"creative":    "Compare the creatives in this dataset. Identify which messages and formats drive engagement and which should be retired or iterated on.",
		"budget":      "Review how budget is distributed across these campaigns. Flag overspending with weak returns and underfunded campaigns with strong returns.",
	},
	FamilyAnalytics: {
		"traffic":    "Analyze the traffic sources, devices and geographies in this website data. Identify the channels that bring engaged visitors and those that bounce.",
		"conversion": "Analyze the conversion behavior in this website data. Identify where revenue comes from and which sources or segments convert poorly.",
		"engagement": "Analyze engagement across sessions, sources and devices. Identify what keeps visitors active and where engagement drops off.",
	},
	FamilyCommerce: {
		"orders":              "Analyze these store orders. Identify revenue trends, repeat purchase behavior and order value patterns worth acting on.",
		"customers":           "Analyze this customer base. Identify high-value segments, churn risks and acquisition patterns.",
		"products":            "Analyze this product catalog and its sales. Identify bestsellers, dead stock and pricing opportunities.",
		"abandoned_checkouts": "Analyze these abandoned checkouts. Identify where and why customers drop off and what would recover them.",
		"discounts":           "Analyze these discount rules and their usage. Identify which promotions drive profitable orders and which erode margin.",
	},
	FamilyPayments: {
		"revenue": "Analyze these payment transactions. Identify revenue trends, seasonality, fees impact and anomalies.",
		"fees":    "Analyze the processing fees in these transactions. Identify where fees eat into margin and whether patterns suggest avoidable costs.",
	},
}

// GoalFor resolves the analysis goal for one selection. An explicit custom
// goal always wins; otherwise the family table is consulted, falling back
// to a generic goal for combinations the table does not know.
func GoalFor(platform, analysisType, customGoal string) string {
	if customGoal != "" {
		return customGoal
	}
	if byType, ok := goals[FamilyOf(platform)]; ok {
		if goal, ok := byType[analysisType]; ok {
			return goal
		}
	}
	return defaultGoal
}
