package formatters

import "github.com/askdoc/askdoc/internal/models"

// APIResponse is the JSON body returned by POST /api/chat. Answer fields
// serialize directly with no lossy transformation.
type APIResponse struct {
	Answer         string   `json:"answer"`
	Confidence     float64  `json:"confidence"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id"`
	ResponseTimeMs int64    `json:"response_time_ms"`
	Degraded       bool     `json:"degraded,omitempty"`
}

// APIAnswer serializes an Answer for the JSON API.
func APIAnswer(answer *models.Answer, conversationID string) *APIResponse {
	sources := answer.Sources
	if sources == nil {
		sources = []string{}
	}
	return &APIResponse{
		Answer:         answer.Text,
		Confidence:     answer.Confidence,
		Sources:        sources,
		ConversationID: conversationID,
		ResponseTimeMs: answer.ElapsedMs,
		Degraded:       answer.Degraded,
	}
}
