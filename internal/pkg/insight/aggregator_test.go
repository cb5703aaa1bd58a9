package insight

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkov/adpulse/app/models"
)

type fakeLoader struct {
	data map[string]string
}

func (f *fakeLoader) Load(_ uint, platform, _ string, _ time.Time) (string, error) {
	return f.data[platform], nil
}

type fakeChat struct {
	lastRequest openai.ChatCompletionRequest
	response    string
	err         error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastRequest = req
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
	}, nil
}

const validResponse = `{"summary":"s","recommendations":["r1"],"industrySpecificInsights":["i1"],"metrics":{"roas":2.1}}`

func TestAnalyzeRejectsEmptySelection(t *testing.T) {
	agg := NewAggregator(&fakeLoader{}, &fakeChat{response: validResponse})

	_, err := agg.Analyze(context.Background(), 1, Request{})
	assert.ErrorIs(t, err, ErrNoPlatformsSelected)
}

func TestAnalyzeRejectsAllEmptyDatasets(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{"facebook": "[]", "stripe": ""}}
	agg := NewAggregator(loader, &fakeChat{response: validResponse})

	_, err := agg.Analyze(context.Background(), 1, Request{
		Selections: []Selection{{Platform: "facebook"}, {Platform: "stripe"}},
	})
	assert.ErrorIs(t, err, ErrNoDataFound)
}

func TestAnalyzeSkipsEmptyDatasetsAndSucceeds(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{
		"facebook": `[{"ad_id":"1"}]`,
		"stripe":   "[]",
	}}
	chat := &fakeChat{response: validResponse}
	agg := NewAggregator(loader, chat)

	insight, err := agg.Analyze(context.Background(), 1, Request{
		Selections: []Selection{
			{Platform: "facebook", AnalysisType: "performance"},
			{Platform: "stripe", AnalysisType: "revenue"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "s", insight.Summary)
	assert.Equal(t, []string{"r1"}, insight.Recommendations)

	prompt := chat.lastRequest.Messages[1].Content
	assert.Contains(t, prompt, "facebook")
	assert.NotContains(t, prompt, "Dataset 2")
	assert.NotContains(t, prompt, "Cross-platform synthesis")
}

func TestAnalyzeAddsSynthesisForTwoDatasets(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{
		"facebook": `[{"ad_id":"1"}]`,
		"shopify":  `[{"order":1}]`,
	}}
	chat := &fakeChat{response: validResponse}
	agg := NewAggregator(loader, chat)

	_, err := agg.Analyze(context.Background(), 1, Request{
		Selections: []Selection{
			{Platform: "facebook", AnalysisType: "performance"},
			{Platform: "shopify", AnalysisType: "orders"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, chat.lastRequest.Messages[1].Content, "Cross-platform synthesis")
}

func TestAnalyzeTemperatureFollowsDepth(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{"facebook": "[1]"}}

	tests := []struct {
		depth string
		want  float32
	}{
		{DepthBasic, 0.3},
		{DepthAdvanced, 0.6},
		{"Expert", 0.9},
		{"", 0.9},
	}
	for _, tt := range tests {
		chat := &fakeChat{response: validResponse}
		agg := NewAggregator(loader, chat)
		_, err := agg.Analyze(context.Background(), 1, Request{
			Selections: []Selection{{Platform: "facebook"}},
			Depth:      tt.depth,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, chat.lastRequest.Temperature, "depth %q", tt.depth)
	}
}

func TestAnalyzeCustomGoalOverridesTable(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{"facebook": "[1]"}}
	chat := &fakeChat{response: validResponse}
	agg := NewAggregator(loader, chat)

	_, err := agg.Analyze(context.Background(), 1, Request{
		Selections: []Selection{{Platform: "facebook", AnalysisType: "performance"}},
		CustomGoal: "Focus on weekend performance only",
	})
	require.NoError(t, err)
	assert.Contains(t, chat.lastRequest.Messages[1].Content, "Focus on weekend performance only")
}

func TestAnalyzeMalformedResponse(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{"facebook": "[1]"}}

	for _, response := range []string{"not json", "{}", `{"summary":""}`} {
		agg := NewAggregator(loader, &fakeChat{response: response})
		_, err := agg.Analyze(context.Background(), 1, Request{
			Selections: []Selection{{Platform: "facebook"}},
		})
		assert.ErrorIs(t, err, ErrMalformedInsight, "response %q", response)
	}
}

func TestParseInsightToleratesCodeFence(t *testing.T) {
	insight, err := parseInsight("```json\n" + validResponse + "\n```")
	require.NoError(t, err)
	assert.Equal(t, "s", insight.Summary)
}

func TestAnalyzePromptCarriesProductAndDepth(t *testing.T) {
	loader := &fakeLoader{data: map[string]string{"facebook": "[1]"}}
	chat := &fakeChat{response: validResponse}
	agg := NewAggregator(loader, chat)

	_, err := agg.Analyze(context.Background(), 1, Request{
		Selections: []Selection{{Platform: "facebook", AnalysisType: "performance"}},
		Depth:      DepthAdvanced,
		Industry:   "fitness",
		Product:    "protein bars",
	})
	require.NoError(t, err)

	prompt := chat.lastRequest.Messages[1].Content
	assert.Contains(t, prompt, "Product or business scope: protein bars")
	assert.Contains(t, prompt, "Depth level: Advanced")
	assert.Contains(t, prompt, "Industry: fitness")
}

func TestProjectAnalyticsRows(t *testing.T) {
	rows := []models.AnalyticsRow{{
		UserID:          1,
		SessionSource:   "google",
		DeviceCategory:  "mobile",
		Sessions:        10,
		Transactions:    3,
		PurchaseRevenue: 99.5,
		EngagementRate:  0.7,
	}}

	traffic, err := json.Marshal(projectAnalyticsRows(rows, "traffic"))
	require.NoError(t, err)
	assert.Contains(t, string(traffic), `"sessions":10`)
	assert.NotContains(t, string(traffic), "purchase_revenue")

	conversion, err := json.Marshal(projectAnalyticsRows(rows, "conversion"))
	require.NoError(t, err)
	assert.Contains(t, string(conversion), `"purchase_revenue":99.5`)
	assert.NotContains(t, string(conversion), "device_category")

	engagement, err := json.Marshal(projectAnalyticsRows(rows, "engagement"))
	require.NoError(t, err)
	assert.Contains(t, string(engagement), `"engagement_rate":0.7`)
	assert.NotContains(t, string(engagement), "transactions")

	full, err := json.Marshal(projectAnalyticsRows(rows, "unknown"))
	require.NoError(t, err)
	assert.Contains(t, string(full), "purchase_revenue")
	assert.Contains(t, string(full), "device_category")
}

func TestJoinPayloads(t *testing.T) {
	payloads := []string{`{"a":1}`, `{"b":2}`}
	got := joinPayloads(len(payloads), func(i int) string { return payloads[i] })
	assert.Equal(t, `[{"a":1},{"b":2}]`, got)
	assert.Equal(t, "", joinPayloads(0, nil))
}
