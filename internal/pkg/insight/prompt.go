package insight

import (
	"fmt"
	"strings"
)

// systemPrompt pins the assistant role and the response contract. The
// response format is parsed by completion.go; keep the two in sync.
const systemPrompt = `You are an elite marketing strategist and industry analyst. You receive raw datasets from one or more marketing, analytics, e-commerce or payment platforms and produce actionable insights specific to the user's industry and product. Respond with a single JSON object with exactly these keys: "summary" (string), "recommendations" (array of strings), "industrySpecificInsights" (array of strings), "metrics" (object mapping metric names to per-platform values). Omit metrics that do not apply to the selected platforms. Ground every statement in the data you were given. Do not invent numbers.`

// insightCategories is the fixed list every dataset block asks for.
var insightCategories = []string{
	"Key performance insights (trends, strengths, weaknesses)",
	"Optimization suggestions",
	"Recommended strategy for growth",
	"Industry-specific recommendations",
	"Graphable metrics",
}

// synthesisQuestions drive the cross-platform comparison that only makes
// sense when at least two datasets are present.
var synthesisQuestions = []string{
	"How do these platforms compare in performance for this industry?",
	"Which platform has the highest engagement, ROI or conversion rate?",
	"How does the product perform across the different channels?",
	"What are the most effective strategies for this industry?",
	"Are there patterns in customer retention, transactions or payments specific to this industry?",
	"What is the best strategic move right now?",
}

// preparedSelection is one platform dataset that survived the empty-data
// filter, together with its resolved goal.
type preparedSelection struct {
	Platform     string
	AnalysisType string
	Goal         string
	DatasetJSON  string
}

func depthLabel(depth string) string {
	if depth == "" {
		return "Standard"
	}
	return depth
}

// buildPrompt assembles the user message: one block per dataset carrying
// the full analysis context, plus a synthesis block when two or more
// datasets allow comparison. The synthesis block restates the shared
// context and every selection's goal so the comparison is not answered
// from one block alone.
func buildPrompt(selections []preparedSelection, req Request) string {
	var b strings.Builder

	for i, sel := range selections {
		fmt.Fprintf(&b, "### Dataset %d: %s (%s)\n", i+1, sel.Platform, sel.AnalysisType)
		writeContext(&b, req)
		fmt.Fprintf(&b, "Goal: %s\n", sel.Goal)
		b.WriteString("Cover in the analysis:\n")
		for _, cat := range insightCategories {
			fmt.Fprintf(&b, "- %s\n", cat)
		}
		fmt.Fprintf(&b, "Data:\n%s\n\n", sel.DatasetJSON)
	}

	if len(selections) >= 2 {
		b.WriteString("### Cross-platform synthesis\n")
		b.WriteString("The datasets above come from different platforms of the same business. Analyze them together.\n")
		writeContext(&b, req)
		b.WriteString("Selected platforms and goals:\n")
		for _, sel := range selections {
			fmt.Fprintf(&b, "- %s (%s): %s\n", sel.Platform, sel.AnalysisType, sel.Goal)
		}
		b.WriteString("Answer the following in your analysis:\n")
		for _, q := range synthesisQuestions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// writeContext emits the shared industry/product/depth lines used by both
// the per-dataset blocks and the synthesis block.
func writeContext(b *strings.Builder, req Request) {
	if req.Industry != "" {
		fmt.Fprintf(b, "Industry: %s\n", req.Industry)
	}
	if req.Product != "" {
		fmt.Fprintf(b, "Product or business scope: %s\n", req.Product)
	}
	fmt.Fprintf(b, "Depth level: %s\n", depthLabel(req.Depth))
}
