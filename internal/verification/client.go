package verification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// LLMClient is the interface both client implementations satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error)
}

// LLMResponse holds the raw response content and token usage.
type LLMResponse struct {
	Content      string
	PromptTokens int
	OutputTokens int
}

// NewClient picks the client implementation from the environment.
func NewClient() (LLMClient, string) {
	if os.Getenv("MOCK_VERIFIER") == "true" {
		log.Println("Verifier using mock data")
		return NewMockClient(), "mock"
	}

	model := os.Getenv("ANTHROPIC_VERIFICATION_MODEL")
	if model == "" {
		model = "claude-sonnet-4-5-20250929"
	}
	log.Println("Verifier using Anthropic API:", model)
	return NewAPIClient(model), model
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.0),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var responseText string
	for _, block := range message.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}

	if responseText == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return &LLMResponse{
		Content:      responseText,
		PromptTokens: int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		// Billing problems don't get better with retries; surface immediately
		// so the worker can abort the whole run.
		if IsBillingError(err) {
			return nil, err
		}
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// IsBillingError reports whether err indicates a billing or quota problem
// with the upstream provider.
func IsBillingError(err error) bool {
	if err == nil {
		return false
	}
	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		if apierr.StatusCode == 402 || apierr.StatusCode == 429 {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "billing") || strings.Contains(msg, "credit balance")
}

// ── MockClient — Local Development ─────────────────────────

// MockClient always agrees with the stored correct choice by echoing "A";
// pair it with fixtures whose correct choice is A.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (*LLMResponse, error) {
	return &LLMResponse{
		Content:      `{"selected_choice": "A", "confidence": "high", "reasoning": "[Mock] Choice A follows directly from the cited section."}`,
		PromptTokens: 300,
		OutputTokens: 60,
	}, nil
}
