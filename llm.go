package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-5-20250929"

type LLMUsage struct {
	InputTokens              int64
	OutputTokens             int64
	CacheCreationInputTokens int64
	CacheReadInputTokens     int64
}

func (u LLMUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

func (u *LLMUsage) Add(other LLMUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
}

// ReasoningClient is the reasoning-service boundary: one structured call per
// batch. Implementations do not retry; the caller owns retry policy.
type ReasoningClient interface {
	Complete(ctx context.Context, req ClusterRequest) (BatchResult, LLMUsage, error)
}

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

func (a *AnthropicClient) Complete(ctx context.Context, req ClusterRequest) (BatchResult, LLMUsage, error) {
	system := fmt.Sprintf("%s\n\nRespond with JSON only (no markdown) matching this schema (%s):\n%s",
		req.System, req.SchemaName, renderSchema(req.Schema))

	log.Printf("llm cluster model=%s schema=%s temperature=%.2f", a.model, req.SchemaName, req.Temperature)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   4096,
		Temperature: anthropic.Float(req.Temperature),
		System: []anthropic.TextBlockParam{
			{Text: system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.User)),
		},
	})
	if err != nil {
		log.Printf("llm anthropic error: %v", err)
		metricReasoningFailures.Inc()
		return BatchResult{}, LLMUsage{}, &TransportError{Op: "anthropic messages", Err: err}
	}
	usage := LLMUsage{
		InputTokens:              message.Usage.InputTokens,
		OutputTokens:             message.Usage.OutputTokens,
		CacheCreationInputTokens: message.Usage.CacheCreationInputTokens,
		CacheReadInputTokens:     message.Usage.CacheReadInputTokens,
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			log.Printf("llm anthropic response size=%d tokens_in=%d tokens_out=%d cache_create=%d cache_read=%d",
				len(block.Text), usage.InputTokens, usage.OutputTokens, usage.CacheCreationInputTokens, usage.CacheReadInputTokens)
			result, parseErr := ParseClusterResponse(block.Text)
			return result, usage, parseErr
		}
	}
	return BatchResult{}, usage, &TransportError{Op: "anthropic messages", Err: fmt.Errorf("no text content in response")}
}

// ParseClusterResponse decodes the assignments envelope, tolerating
// markdown fences around the JSON.
func ParseClusterResponse(responseText string) (BatchResult, error) {
	responseText = strings.TrimSpace(responseText)
	responseText = strings.TrimPrefix(responseText, "```json")
	responseText = strings.TrimPrefix(responseText, "```")
	responseText = strings.TrimSuffix(responseText, "```")
	responseText = strings.TrimSpace(responseText)

	var result BatchResult
	if err := json.Unmarshal([]byte(responseText), &result); err != nil {
		truncated := responseText
		if len(truncated) > 512 {
			truncated = truncated[:512] + fmt.Sprintf("... [truncated, total_length=%d]", len(responseText))
		}
		return BatchResult{}, fmt.Errorf("parsing clustering response: %w (truncated response: %s)", err, truncated)
	}
	return result, nil
}
