package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFamilyOf(t *testing.T) {
	assert.Equal(t, FamilyAds, FamilyOf("facebook"))
	assert.Equal(t, FamilyAds, FamilyOf("googleAds"))
	assert.Equal(t, FamilyAnalytics, FamilyOf("analytics"))
	assert.Equal(t, FamilyCommerce, FamilyOf("shopify"))
	assert.Equal(t, FamilyPayments, FamilyOf("stripe"))
	assert.Equal(t, "", FamilyOf("myspace"))
}

func TestGoalFor(t *testing.T) {
	tests := []struct {
		name         string
		platform     string
		analysisType string
		customGoal   string
		want         string
	}{
		{
			name:         "custom goal wins over table",
			platform:     "facebook",
			analysisType: "performance",
			customGoal:   "Tell me about my cats",
			want:         "Tell me about my cats",
		},
		{
			name:         "table hit",
			platform:     "facebook",
			analysisType: "performance",
			want:         goals[FamilyAds]["performance"],
		},
		{
			name:         "same goal across a family",
			platform:     "tiktok",
			analysisType: "performance",
			want:         goals[FamilyAds]["performance"],
		},
		{
			name:         "unknown analysis type falls back",
			platform:     "facebook",
			analysisType: "astrology",
			want:         defaultGoal,
		},
		{
			name:         "unknown platform falls back",
			platform:     "myspace",
			analysisType: "performance",
			want:         defaultGoal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GoalFor(tt.platform, tt.analysisType, tt.customGoal))
		})
	}
}
