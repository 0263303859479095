package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/formatters"
	"github.com/askdoc/askdoc/internal/models"
)

func TestStripMention(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"leading mention", "<@U0123ABCD> What is our PTO policy?", "What is our PTO policy?"},
		{"mention only", "<@U0123ABCD>", ""},
		{"no mention", "What is our PTO policy?", "What is our PTO policy?"},
		{"multiple mentions", "<@U0123ABCD> hello <@UZZ99YYXX> there", "hello  there"},
		{"lowercase id not a mention", "<@u0123abcd> hi", "<@u0123abcd> hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMention(tt.text))
		})
	}
}

func TestEnvelopeParsing(t *testing.T) {
	raw := `{
		"envelope_id": "env-1",
		"type": "events_api",
		"payload": {"event": {"type": "app_mention", "text": "<@U0123ABCD> hello", "user": "U777", "channel": "C42"}}
	}`

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	assert.Equal(t, "env-1", env.EnvelopeID)
	assert.Equal(t, "events_api", env.Type)

	var p eventsPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, "app_mention", p.Event.Type)
	assert.Equal(t, "U777", p.Event.User)
	assert.Equal(t, "C42", p.Event.Channel)
}

type slackCall struct {
	method string
	body   map[string]interface{}
}

// fakeSlack records Web API calls and answers them like Slack would.
func fakeSlack(t *testing.T, calls *[]slackCall) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, slackCall{method: r.URL.Path, body: body})

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/chat.postMessage":
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "ts": "1724961000.000100"})
		default:
			json.NewEncoder(w).Encode(map[string]interface{}{"ok": true})
		}
	}))
}

func newTestWebClient(url string) *WebClient {
	client := NewWebClient("xoxb-test", "xapp-test", arbor.NewLogger())
	client.baseURL = url
	return client
}

func TestWebClientPostMessage(t *testing.T) {
	var calls []slackCall
	server := fakeSlack(t, &calls)
	defer server.Close()

	client := newTestWebClient(server.URL)
	ts, err := client.PostMessage(context.Background(), "C42", formatters.SlackSearching())
	require.NoError(t, err)
	assert.Equal(t, "1724961000.000100", ts)

	require.Len(t, calls, 1)
	assert.Equal(t, "/chat.postMessage", calls[0].method)
	assert.Equal(t, "C42", calls[0].body["channel"])
}

func TestWebClientUpdateMessage(t *testing.T) {
	var calls []slackCall
	server := fakeSlack(t, &calls)
	defer server.Close()

	client := newTestWebClient(server.URL)
	answer := &models.Answer{Text: "done", Sources: []string{"handbook.pdf"}, Confidence: 0.9}
	err := client.UpdateMessage(context.Background(), "C42", "1724961000.000100", formatters.SlackAnswer(answer))
	require.NoError(t, err)

	require.Len(t, calls, 1)
	assert.Equal(t, "/chat.update", calls[0].method)
	assert.Equal(t, "1724961000.000100", calls[0].body["ts"])
	assert.NotNil(t, calls[0].body["blocks"])
}

func TestWebClientAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": "channel_not_found"})
	}))
	defer server.Close()

	client := newTestWebClient(server.URL)
	_, err := client.PostMessage(context.Background(), "C42", formatters.SlackSearching())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel_not_found")
}
