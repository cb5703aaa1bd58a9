package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nmarkov/adpulse/internal/pkg/env"
)

// Insight is the parsed analysis result returned to the client.
type Insight struct {
	Summary                  string         `json:"summary"`
	Recommendations          []string       `json:"recommendations"`
	IndustrySpecificInsights []string       `json:"industrySpecificInsights"`
	Metrics                  map[string]any `json:"metrics"`
}

// chatClient is the slice of the OpenAI client the aggregator needs.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewChatClient builds the production OpenAI client from the environment.
func NewChatClient() chatClient {
	return openai.NewClient(env.GetEnv("OPENAI_API_KEY", ""))
}

func modelName() string {
	return env.GetEnv("OPENAI_MODEL", openai.GPT4oMini)
}

// complete sends the assembled prompt and parses the JSON response.
func complete(ctx context.Context, chat chatClient, prompt string, temperature float32) (*Insight, error) {
	resp, err := chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       modelName(),
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrMalformedInsight
	}
	return parseInsight(resp.Choices[0].Message.Content)
}

// parseInsight decodes the model output, tolerating a fenced code block
// around the JSON. Anything else is ErrMalformedInsight.
func parseInsight(content string) (*Insight, error) {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}
	var insight Insight
	if err := json.Unmarshal([]byte(content), &insight); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInsight, err)
	}
	if insight.Summary == "" {
		return nil, fmt.Errorf("%w: missing summary", ErrMalformedInsight)
	}
	return &insight, nil
}
