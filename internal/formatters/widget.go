package formatters

import "github.com/askdoc/askdoc/internal/models"

// WidgetResponse is the embedded-widget variant of the API shape. The
// conversation echo is mandatory so the widget can thread follow-ups.
type WidgetResponse struct {
	Answer         string   `json:"answer"`
	Confidence     float64  `json:"confidence"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id"`
	ResponseTimeMs int64    `json:"response_time_ms"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// WidgetAnswer serializes an Answer for the embedded widget.
func WidgetAnswer(answer *models.Answer, conversationID string) *WidgetResponse {
	api := APIAnswer(answer, conversationID)
	return &WidgetResponse{
		Answer:         api.Answer,
		Confidence:     api.Confidence,
		Sources:        api.Sources,
		ConversationID: api.ConversationID,
		ResponseTimeMs: api.ResponseTimeMs,
		Degraded:       api.Degraded,
	}
}
