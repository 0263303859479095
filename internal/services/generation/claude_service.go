package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/models"
)

// ClaudeService implements the GenerationService interface using the
// Anthropic Claude API.
type ClaudeService struct {
	config          *common.LLMConfig
	logger          arbor.ILogger
	client          *anthropic.Client
	model           string
	timeout         time.Duration
	maxTokens       int
	maxContextChars int
}

// NewClaudeService creates a Claude-backed generation service.
func NewClaudeService(cfg *common.LLMConfig, logger arbor.ILogger) (*ClaudeService, error) {
	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required for the claude provider (set ASKDOC_LLM_ANTHROPIC_API_KEY, ANTHROPIC_API_KEY, or llm.anthropic_api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}

	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	service := &ClaudeService{
		config:          cfg,
		logger:          logger,
		client:          &client,
		model:           model,
		timeout:         timeout,
		maxTokens:       maxTokens,
		maxContextChars: cfg.MaxContextChars,
	}

	logger.Info().
		Str("model", model).
		Dur("timeout", timeout).
		Float32("temperature", cfg.Temperature).
		Int("max_tokens", maxTokens).
		Msg("Claude generation service initialized")

	return service, nil
}

// Generate produces a grounded answer from the query and retrieved chunks.
func (s *ClaudeService) Generate(ctx context.Context, queryText string, chunks []models.RetrievedChunk) (*models.GeneratedAnswer, error) {
	contextText, citations := packContext(chunks, s.maxContextChars)

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Debug().
		Int("chunks", len(chunks)).
		Int("packed_sources", len(citations)).
		Int("context_chars", len(contextText)).
		Msg("Starting answer generation")

	text, err := s.complete(timeoutCtx, buildPrompt(queryText, contextText))
	if err != nil {
		return nil, classifyGenerationError(err)
	}

	s.logger.Debug().
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Answer generation complete")

	return &models.GeneratedAnswer{Text: text, Citations: citations}, nil
}

// complete makes one Claude API call with the fixed instruction as the
// system prompt.
func (s *ClaudeService) complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: int64(s.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: answerInstruction},
		},
	}
	if s.config.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.config.Temperature))
	}

	resp, err := s.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var builder strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	if builder.Len() == 0 {
		return "", fmt.Errorf("no response generated from model %s", s.model)
	}

	return builder.String(), nil
}

// HealthCheck verifies the Claude API responds to a minimal prompt.
func (s *ClaudeService) HealthCheck(ctx context.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Messages.New(timeoutCtx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.model),
		MaxTokens: 16,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("Reply with OK.")),
		},
	})
	if err != nil {
		return fmt.Errorf("claude health check failed: %w", err)
	}
	return nil
}

// Provider returns the provider name.
func (s *ClaudeService) Provider() string {
	return "claude"
}

// Close releases the client reference.
func (s *ClaudeService) Close() error {
	s.client = nil
	return nil
}
