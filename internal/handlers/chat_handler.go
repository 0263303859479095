package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/formatters"
	"github.com/askdoc/askdoc/internal/interfaces"
	"github.com/askdoc/askdoc/internal/models"
)

// ChatRequest is the JSON body accepted by POST /api/chat and
// POST /api/widget/chat.
type ChatRequest struct {
	Query             string  `json:"query" validate:"required"`
	ConversationID    string  `json:"conversation_id" validate:"omitempty,max=128"`
	MaxResults        int     `json:"max_results" validate:"gte=0,lte=25"`
	DistanceThreshold float64 `json:"distance_threshold" validate:"gte=0,lte=1"`
}

// ChatHandler serves the JSON API and widget chat endpoints. Requests are
// rate limited per client IP through the orchestrator.
type ChatHandler struct {
	queryService interfaces.QueryService
	validate     *validator.Validate
	logger       arbor.ILogger
}

// NewChatHandler creates a new chat handler
func NewChatHandler(queryService interfaces.QueryService, logger arbor.ILogger) *ChatHandler {
	return &ChatHandler{
		queryService: queryService,
		validate:     validator.New(),
		logger:       logger,
	}
}

// ChatHandler handles POST /api/chat requests
func (h *ChatHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api")
}

// WidgetChatHandler handles POST /api/widget/chat requests
func (h *ChatHandler) WidgetChatHandler(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "widget")
}

func (h *ChatHandler) serve(w http.ResponseWriter, r *http.Request, channel string) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}
	start := time.Now()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug().Err(err).Str("channel", channel).Msg("Failed to decode chat request")
		WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		h.logger.Debug().Err(err).Str("channel", channel).Msg("Chat request failed validation")
		WriteError(w, http.StatusBadRequest, "Query field is required")
		return
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	// Detached context: a client disconnect does not abort an in-flight
	// pipeline, the per-dependency timeouts bound the work instead
	answer, err := h.queryService.Answer(context.Background(), &interfaces.AnswerRequest{
		Query:              req.Query,
		UserID:             ClientIP(r),
		ConversationID:     conversationID,
		Channel:            channel,
		MaxResults:         req.MaxResults,
		RelevanceThreshold: req.DistanceThreshold,
	})
	if err != nil {
		h.writeErrorResponse(w, channel, err)
		return
	}

	w.Header().Set("X-Process-Time", fmt.Sprintf("%.3f", time.Since(start).Seconds()))
	if channel == "widget" {
		WriteJSON(w, http.StatusOK, formatters.WidgetAnswer(answer, conversationID))
		return
	}
	WriteJSON(w, http.StatusOK, formatters.APIAnswer(answer, conversationID))
}

// writeErrorResponse maps pipeline errors to HTTP status codes: rate limit
// denials to 429 with a retry hint, empty queries to 400, dependency
// failures to 503.
func (h *ChatHandler) writeErrorResponse(w http.ResponseWriter, channel string, err error) {
	var rateLimitErr *models.RateLimitError
	if errors.As(err, &rateLimitErr) {
		retryAfter := int(math.Ceil(rateLimitErr.RetryAfter.Seconds()))
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
		WriteJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"status":      "error",
			"error":       "Rate limit exceeded. Please slow down.",
			"retry_after": retryAfter,
		})
		return
	}

	if errors.Is(err, models.ErrEmptyQuery) {
		WriteError(w, http.StatusBadRequest, "Query must not be empty")
		return
	}

	h.logger.Error().Err(err).Str("channel", channel).Msg("Chat request failed")

	var retrievalErr *models.RetrievalError
	var generationErr *models.GenerationError
	if errors.As(err, &retrievalErr) || errors.As(err, &generationErr) {
		WriteError(w, http.StatusServiceUnavailable, "Sorry, I couldn't search the docs right now. Please try again in a few minutes.")
		return
	}

	WriteError(w, http.StatusInternalServerError, "Internal server error")
}
