package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/rs/zerolog"
)

// Per-million-token prices in cents, used to attribute spend to cache rows.
// Close enough for operator reporting; exact billing lives with the vendor.
const (
	inputCentsPerMTok  = 300
	outputCentsPerMTok = 1500
)

// AnthropicGenerator produces explanations through the Anthropic Messages
// API.
type AnthropicGenerator struct {
	client *anthropic.Client
	model  string
	log    zerolog.Logger
}

// NewAnthropicGenerator creates a generator bound to one model.
func NewAnthropicGenerator(apiKey, model string, log zerolog.Logger) *AnthropicGenerator {
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &AnthropicGenerator{
		client: &client,
		model:  model,
		log:    log.With().Str("component", "anthropic_generator").Logger(),
	}
}

// Explain implements Generator.
func (g *AnthropicGenerator) Explain(ctx context.Context, req ExplainRequest) (*GeneratedExplanation, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   1024,
		Temperature: param.NewOpt(0.4),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildUserPrompt(req))),
		},
	}

	message, err := g.callWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content = block.Text
			break
		}
	}
	if content == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	inTokens := int(message.Usage.InputTokens)
	outTokens := int(message.Usage.OutputTokens)

	return &GeneratedExplanation{
		Content:     content,
		TokensTotal: inTokens + outTokens,
		CostCents:   estimateCostCents(inTokens, outTokens),
	}, nil
}

func (g *AnthropicGenerator) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt)) * time.Second
			g.log.Warn().Dur("delay", delay).Int("attempt", attempt+1).Msg("Retrying Anthropic API call")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		message, err := g.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		g.log.Error().Err(err).Int("attempt", attempt+1).Msg("Anthropic API call failed")
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// estimateCostCents rounds up so small calls are never attributed zero cost.
func estimateCostCents(inTokens, outTokens int) int {
	cents := (inTokens*inputCentsPerMTok + outTokens*outputCentsPerMTok + 999_999) / 1_000_000
	if cents < 1 {
		cents = 1
	}
	return cents
}
