package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/models"
)

// GeminiService implements the GenerationService interface using the Google
// Gemini API.
type GeminiService struct {
	config          *common.LLMConfig
	logger          arbor.ILogger
	client          *genai.Client
	model           string
	timeout         time.Duration
	maxContextChars int
}

// NewGeminiService creates a Gemini-backed generation service.
func NewGeminiService(cfg *common.LLMConfig, logger arbor.ILogger) (*GeminiService, error) {
	if cfg.GoogleAPIKey == "" {
		return nil, fmt.Errorf("Google API key is required for the gemini provider (set ASKDOC_LLM_GOOGLE_API_KEY, GOOGLE_API_KEY, or llm.google_api_key in config)")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout duration '%s': %w", cfg.Timeout, err)
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GoogleAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:          cfg,
		logger:          logger,
		client:          client,
		model:           model,
		timeout:         timeout,
		maxContextChars: cfg.MaxContextChars,
	}

	logger.Info().
		Str("model", model).
		Dur("timeout", timeout).
		Float32("temperature", cfg.Temperature).
		Int("max_context_chars", cfg.MaxContextChars).
		Msg("Gemini generation service initialized")

	return service, nil
}

// Generate produces a grounded answer from the query and retrieved chunks.
func (s *GeminiService) Generate(ctx context.Context, queryText string, chunks []models.RetrievedChunk) (*models.GeneratedAnswer, error) {
	contextText, citations := packContext(chunks, s.maxContextChars)

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	s.logger.Debug().
		Int("chunks", len(chunks)).
		Int("packed_sources", len(citations)).
		Int("context_chars", len(contextText)).
		Msg("Starting answer generation")

	config := &genai.GenerateContentConfig{
		Temperature:       genai.Ptr(s.config.Temperature),
		SystemInstruction: genai.NewContentFromText(answerInstruction, genai.RoleUser),
	}
	if s.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(s.config.MaxTokens)
	}

	prompt := buildPrompt(queryText, contextText)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.model, contents, config)
	if err != nil {
		return nil, classifyGenerationError(err)
	}

	text := extractText(resp)
	if text == "" {
		return nil, &models.GenerationError{Err: fmt.Errorf("no response generated from model %s", s.model)}
	}

	s.logger.Debug().
		Int("response_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("Answer generation complete")

	return &models.GeneratedAnswer{Text: text, Citations: citations}, nil
}

// extractText walks candidates until a non-empty text is found.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				builder.WriteString(part.Text)
			}
		}
		if builder.Len() > 0 {
			break
		}
	}
	return builder.String()
}

// HealthCheck verifies the Gemini API responds to a minimal prompt.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromText("Reply with OK.", genai.RoleUser),
	}
	resp, err := s.client.Models.GenerateContent(timeoutCtx, s.model, contents, nil)
	if err != nil {
		return fmt.Errorf("gemini health check failed: %w", err)
	}
	if extractText(resp) == "" {
		return fmt.Errorf("gemini health check returned empty response")
	}
	return nil
}

// Provider returns the provider name.
func (s *GeminiService) Provider() string {
	return "gemini"
}

// Close releases the client reference. The genai client does not require
// explicit cleanup.
func (s *GeminiService) Close() error {
	s.client = nil
	return nil
}

// classifyGenerationError wraps provider failures into the models error
// taxonomy, distinguishing timeouts from other unavailability.
func classifyGenerationError(err error) error {
	timeout := errors.Is(err, context.DeadlineExceeded)
	return &models.GenerationError{Timeout: timeout, Err: err}
}
