package slack

import (
	"encoding/json"
	"regexp"
	"strings"
)

// envelope is the Socket Mode frame wrapping every inbound payload. Each
// envelope must be acked with its envelope_id or Slack redelivers it.
type envelope struct {
	EnvelopeID string          `json:"envelope_id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
}

type ack struct {
	EnvelopeID string `json:"envelope_id"`
}

// eventsPayload is the events_api envelope payload.
type eventsPayload struct {
	Event innerEvent `json:"event"`
}

type innerEvent struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	User        string `json:"user"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	BotID       string `json:"bot_id"`
	ThreadTS    string `json:"thread_ts"`
	TS          string `json:"ts"`
}

// slashPayload is the slash_commands envelope payload.
type slashPayload struct {
	Command   string `json:"command"`
	Text      string `json:"text"`
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

var mentionPattern = regexp.MustCompile(`<@U[A-Z0-9]+>`)

// stripMention removes bot mention tags from message text so only the
// question remains.
func stripMention(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}
