package slack

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/askdoc/askdoc/internal/common"
	"github.com/askdoc/askdoc/internal/formatters"
	"github.com/askdoc/askdoc/internal/interfaces"
)

const (
	reconnectBackoff = 5 * time.Second
	answerTimeout    = 2 * time.Minute
)

// Connector runs the Socket Mode event loop: dial, ack, dispatch. Each
// question posts a placeholder immediately and updates it in place once
// the pipeline finishes.
type Connector struct {
	config       *common.SlackConfig
	webClient    *WebClient
	queryService interfaces.QueryService
	logger       arbor.ILogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewConnector creates the Socket Mode connector
func NewConnector(config *common.SlackConfig, webClient *WebClient, queryService interfaces.QueryService, logger arbor.ILogger) *Connector {
	return &Connector{
		config:       config,
		webClient:    webClient,
		queryService: queryService,
		logger:       logger,
	}
}

// Start launches the connection loop in the background.
func (c *Connector) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()

	c.logger.Info().Str("bot_name", c.config.BotName).Msg("Slack connector started")
}

// Stop tears down the connection loop and waits for in-flight handlers.
func (c *Connector) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.logger.Info().Msg("Slack connector stopped")
}

// run dials Socket Mode and reads envelopes until the context is
// canceled, reconnecting after any connection failure.
func (c *Connector) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn().
				Err(err).
				Dur("backoff", reconnectBackoff).
				Msg("Slack connection lost, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectBackoff):
		}
	}
}

func (c *Connector) connectAndRead(ctx context.Context) error {
	wsURL, err := c.webClient.OpenConnection(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Close the socket when the context ends so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	c.logger.Info().Msg("Slack Socket Mode connection established")

	var writeMu sync.Mutex
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Debug().Err(err).Msg("Skipping unparseable Slack frame")
			continue
		}

		// Ack before handling; Slack redelivers unacked envelopes
		if env.EnvelopeID != "" {
			writeMu.Lock()
			err := conn.WriteJSON(ack{EnvelopeID: env.EnvelopeID})
			writeMu.Unlock()
			if err != nil {
				return err
			}
		}

		switch env.Type {
		case "events_api":
			c.dispatchEvent(ctx, env.Payload)
		case "slash_commands":
			c.dispatchSlash(ctx, env.Payload)
		case "disconnect":
			c.logger.Info().Msg("Slack requested disconnect, reconnecting")
			return nil
		}
	}
}

func (c *Connector) dispatchEvent(ctx context.Context, payload json.RawMessage) {
	var p eventsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Debug().Err(err).Msg("Skipping unparseable events_api payload")
		return
	}
	event := p.Event

	// Ignore the bot's own messages
	if event.BotID != "" || event.User == "" {
		return
	}

	switch {
	case event.Type == "app_mention":
		c.handleQuestion(ctx, stripMention(event.Text), event.User, event.Channel)
	case event.Type == "message" && event.ChannelType == "im":
		c.handleQuestion(ctx, strings.TrimSpace(event.Text), event.User, event.Channel)
	}
}

func (c *Connector) dispatchSlash(ctx context.Context, payload json.RawMessage) {
	var p slashPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Debug().Err(err).Msg("Skipping unparseable slash command payload")
		return
	}
	if p.Command != "/ask" {
		return
	}
	c.handleQuestion(ctx, stripMention(p.Text), p.UserID, p.ChannelID)
}

// handleQuestion runs the pipeline for one Slack question. The placeholder
// is posted first so the user sees an immediate response, then replaced
// with the final answer or a friendly error.
func (c *Connector) handleQuestion(ctx context.Context, query, userID, channelID string) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, answerTimeout)
		defer cancel()

		if len(query) < c.config.MinQueryLength {
			if _, err := c.webClient.PostMessage(ctx, channelID, formatters.SlackUsageHint(c.config.BotName)); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to post usage hint")
			}
			return
		}

		loadingTS, err := c.webClient.PostMessage(ctx, channelID, formatters.SlackSearching())
		if err != nil {
			c.logger.Warn().Err(err).Str("channel", channelID).Msg("Failed to post loading message")
		}

		answer, err := c.queryService.Answer(ctx, &interfaces.AnswerRequest{
			Query:   query,
			UserID:  userID,
			Channel: "slack",
		})

		var msg *formatters.SlackMessage
		if err != nil {
			msg = formatters.SlackError(err)
		} else {
			msg = formatters.SlackAnswer(answer)
		}

		if loadingTS != "" {
			if err := c.webClient.UpdateMessage(ctx, channelID, loadingTS, msg); err == nil {
				return
			}
			c.logger.Warn().Str("channel", channelID).Msg("Failed to update loading message, posting new")
		}
		if _, err := c.webClient.PostMessage(ctx, channelID, msg); err != nil {
			c.logger.Error().Err(err).Str("channel", channelID).Msg("Failed to post answer")
		}
	}()
}
