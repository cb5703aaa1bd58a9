package insight

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPromptSingleDataset(t *testing.T) {
	prompt := buildPrompt([]preparedSelection{
		{Platform: "facebook", AnalysisType: "performance", Goal: "g1", DatasetJSON: `[{"ad_id":"1"}]`},
	}, Request{})

	assert.Contains(t, prompt, "Dataset 1: facebook (performance)")
	assert.Contains(t, prompt, "Goal: g1")
	assert.Contains(t, prompt, `[{"ad_id":"1"}]`)
	assert.NotContains(t, prompt, "Cross-platform synthesis")
}

func TestBuildPromptEmbedsAnalysisContext(t *testing.T) {
	prompt := buildPrompt([]preparedSelection{
		{Platform: "facebook", AnalysisType: "performance", Goal: "g1", DatasetJSON: "[1]"},
	}, Request{Depth: DepthAdvanced, Industry: "fitness", Product: "protein bars"})

	assert.Contains(t, prompt, "Industry: fitness")
	assert.Contains(t, prompt, "Product or business scope: protein bars")
	assert.Contains(t, prompt, "Depth level: Advanced")
	for _, cat := range insightCategories {
		assert.Contains(t, prompt, cat)
	}
}

func TestBuildPromptDefaultsDepthLabel(t *testing.T) {
	prompt := buildPrompt([]preparedSelection{
		{Platform: "stripe", AnalysisType: "revenue", Goal: "g", DatasetJSON: "[1]"},
	}, Request{})

	assert.Contains(t, prompt, "Depth level: Standard")
	assert.NotContains(t, prompt, "Industry:")
	assert.NotContains(t, prompt, "Product or business scope:")
}

func TestBuildPromptSynthesisNeedsTwoDatasets(t *testing.T) {
	prompt := buildPrompt([]preparedSelection{
		{Platform: "facebook", AnalysisType: "performance", Goal: "g1", DatasetJSON: "[1]"},
		{Platform: "shopify", AnalysisType: "orders", Goal: "g2", DatasetJSON: "[2]"},
	}, Request{})

	assert.Contains(t, prompt, "Dataset 1: facebook")
	assert.Contains(t, prompt, "Dataset 2: shopify")
	assert.Contains(t, prompt, "Cross-platform synthesis")
	for _, q := range synthesisQuestions {
		assert.Contains(t, prompt, q)
	}
}

func TestBuildPromptSynthesisRestatesContextAndGoals(t *testing.T) {
	prompt := buildPrompt([]preparedSelection{
		{Platform: "facebook", AnalysisType: "performance", Goal: "fb goal", DatasetJSON: "[1]"},
		{Platform: "shopify", AnalysisType: "orders", Goal: "shop goal", DatasetJSON: "[2]"},
	}, Request{Depth: DepthBasic, Industry: "fashion", Product: "sneakers"})

	idx := strings.Index(prompt, "### Cross-platform synthesis")
	require.GreaterOrEqual(t, idx, 0)
	synthesis := prompt[idx:]

	assert.Contains(t, synthesis, "Industry: fashion")
	assert.Contains(t, synthesis, "Product or business scope: sneakers")
	assert.Contains(t, synthesis, "Depth level: Basic")
	assert.Contains(t, synthesis, "- facebook (performance): fb goal")
	assert.Contains(t, synthesis, "- shopify (orders): shop goal")
}
