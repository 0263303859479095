package generation

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/interfaces"
)

// NewGenerationService creates the generation service implementation
// selected by llm.provider.
func NewGenerationService(cfg *common.LLMConfig, logger arbor.ILogger) (interfaces.GenerationService, error) {
	logger.Info().Str("provider", cfg.Provider).Msg("Initializing generation service")

	switch cfg.Provider {
	case "gemini":
		return NewGeminiService(cfg, logger)
	case "claude":
		return NewClaudeService(cfg, logger)
	default:
		return nil, fmt.Errorf("invalid llm provider '%s': must be 'gemini' or 'claude'", cfg.Provider)
	}
}
