// Package formatters renders the canonical Answer into channel-specific
// payloads. Formatters are pure: the same Answer always produces the same
// payload, and nothing here feeds back into the pipeline.
package formatters

import (
	"fmt"
	"strings"

	"github.com/askdoc/askdoc/internal/models"
)

// maxSlackSources caps the source list rendered in chat output.
const maxSlackSources = 3

// Block Kit payload types, reduced to the shapes this formatter emits.

type SlackMessage struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks,omitempty"`
}

type SlackBlock struct {
	Type     string      `json:"type"`
	Text     *SlackText  `json:"text,omitempty"`
	Elements []SlackText `json:"elements,omitempty"`
}

type SlackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// confidenceLabel buckets a numeric confidence for display only. The
// thresholds are cosmetic and independent of the pipeline's scoring.
func confidenceLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return ":large_green_circle: High confidence"
	case confidence >= 0.5:
		return ":large_yellow_circle: Medium confidence"
	default:
		return ":red_circle: Low confidence"
	}
}

// SlackAnswer renders an Answer as Block Kit blocks: answer text, up to
// three sources, and a qualitative confidence footer. The top-level Text
// carries a plain fallback for notifications.
func SlackAnswer(answer *models.Answer) *SlackMessage {
	blocks := []SlackBlock{
		{
			Type: "section",
			Text: &SlackText{Type: "mrkdwn", Text: answer.Text},
		},
	}

	if len(answer.Sources) > 0 {
		sources := answer.Sources
		if len(sources) > maxSlackSources {
			sources = sources[:maxSlackSources]
		}
		lines := make([]string, 0, len(sources))
		for _, source := range sources {
			lines = append(lines, fmt.Sprintf("• `%s`", source))
		}
		blocks = append(blocks,
			SlackBlock{Type: "divider"},
			SlackBlock{
				Type: "section",
				Text: &SlackText{Type: "mrkdwn", Text: "*Sources:*\n" + strings.Join(lines, "\n")},
			},
		)
	}

	footer := confidenceLabel(answer.Confidence)
	if answer.Degraded {
		footer += " · summarization unavailable"
	}
	blocks = append(blocks, SlackBlock{
		Type:     "context",
		Elements: []SlackText{{Type: "mrkdwn", Text: footer}},
	})

	return &SlackMessage{Text: answer.Text, Blocks: blocks}
}

// SlackError renders a user-facing failure message for chat. Rate limit
// denials get their retry hint, everything else gets the apology text.
func SlackError(err error) *SlackMessage {
	text := friendlyErrorText(err)
	return &SlackMessage{
		Text: text,
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: text}},
		},
	}
}

// SlackUsageHint is shown when a query is too short to be meaningful.
func SlackUsageHint(botName string) *SlackMessage {
	text := fmt.Sprintf("Ask me a question about the docs, e.g. `@%s What is our PTO policy?`", botName)
	return &SlackMessage{
		Text: text,
		Blocks: []SlackBlock{
			{Type: "section", Text: &SlackText{Type: "mrkdwn", Text: text}},
		},
	}
}

// SlackSearching is the placeholder posted while the pipeline runs, later
// replaced in place with the final answer.
func SlackSearching() *SlackMessage {
	return &SlackMessage{Text: ":mag: Searching the docs..."}
}
