// Package slack connects the attendance pipeline to Slack over Socket Mode.
package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

const (
	responseEphemeral = "ephemeral"
	responseInChannel = "in_channel"
)

// CommandHandler handles a specific slash command. The returned payload is
// sent with the envelope ack.
type CommandHandler func(ctx context.Context, cmd slack.SlashCommand) (interface{}, error)

// CommandRegistry manages slash command handlers
type CommandRegistry struct {
	handlers map[string]CommandHandler
}

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		handlers: make(map[string]CommandHandler),
	}
}

func (r *CommandRegistry) Register(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

// Commands lists the registered command names.
func (r *CommandRegistry) Commands() []string {
	out := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		out = append(out, name)
	}
	return out
}

// Handle processes a slash command event
func (r *CommandRegistry) Handle(ctx context.Context, cmd slack.SlashCommand) (interface{}, error) {
	handler, exists := r.handlers[cmd.Command]
	if !exists {
		return textPayload(fmt.Sprintf("Unknown command: %s", cmd.Command), responseEphemeral), nil
	}
	return handler(ctx, cmd)
}

func textPayload(text, responseType string) map[string]interface{} {
	return map[string]interface{}{
		"text":          text,
		"response_type": responseType,
	}
}

func (c *Connector) usage() string {
	return fmt.Sprintf("Usage: `%s <question>`, for example `%s who is on leave this week?`",
		c.opts.QueryCommand, c.opts.QueryCommand)
}

// handleQueryCommand acks straight away and posts the answer to the
// command's response_url once the query finishes.
func (c *Connector) handleQueryCommand(ctx context.Context, cmd slack.SlashCommand) (interface{}, error) {
	question := strings.TrimSpace(cmd.Text)
	if question == "" {
		return textPayload(c.usage(), responseEphemeral), nil
	}
	if cmd.ResponseURL == "" {
		return nil, fmt.Errorf("slash command %s has no response_url", cmd.Command)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.ProcessTimeout)
		defer cancel()
		log := logger.GetLoggerFromContext(ctx, c.logger)

		answer := c.queries.Answer(ctx, question)
		if err := c.respond(ctx, cmd.ResponseURL, answer); err != nil {
			log.Error("Failed to post query answer",
				logger.StringField("command", cmd.Command),
				logger.UserIDField(cmd.UserID),
				logger.ErrorField(err))
			return
		}
		log.Debug("Posted query answer", logger.UserIDField(cmd.UserID), logger.IntField("length", len(answer)))
	}()
	return nil, nil
}

func (c *Connector) handleHelpCommand(_ context.Context, _ slack.SlashCommand) (interface{}, error) {
	helpText := fmt.Sprintf(`*Attendance bot*

Post in any channel I'm in and I'll record it, e.g. "WFH today", "on leave 3 days from Monday", "running late, in by 11".
Editing a message updates its record.

*Commands:*
• *%s <question>* - Ask about attendance, e.g. "who was on leave last week?" or "how many WFH days this month by user?"
• *%s* - Show this help message`, c.opts.QueryCommand, c.opts.HelpCommand)

	return textPayload(helpText, responseEphemeral), nil
}

func (c *Connector) respond(ctx context.Context, url, text string) error {
	msg := &slack.WebhookMessage{Text: text, ResponseType: c.responseType()}
	return slack.PostWebhookCustomHTTPContext(ctx, url, c.httpClient, msg)
}

func (c *Connector) responseType() string {
	if c.opts.ResponseInChannel {
		return responseInChannel
	}
	return responseEphemeral
}

// setupCommands initialises the command registry with all available commands
func (c *Connector) setupCommands() {
	c.commands = NewCommandRegistry()
	c.commands.Register(c.opts.QueryCommand, c.handleQueryCommand)
	c.commands.Register(c.opts.HelpCommand, c.handleHelpCommand)
}

// handleSlashCommand processes incoming slash command events
func (c *Connector) handleSlashCommand(ctx context.Context, envelope socketmode.Event) {
	cmd, ok := envelope.Data.(slack.SlashCommand)
	if !ok {
		c.logger.Warn("Failed to parse slash command data", logger.StringField("data", fmt.Sprintf("%+v", envelope.Data)))
		c.ack(envelope)
		return
	}

	ctx, _ = logger.EnsureCorrelationID(ctx)
	log := logger.GetLoggerFromContext(ctx, c.logger)

	log.Info("Received slash command",
		logger.StringField("command", cmd.Command),
		logger.UserIDField(cmd.UserID),
		logger.ChannelField(cmd.ChannelID))

	response, err := c.commands.Handle(ctx, cmd)
	if err != nil {
		log.Error("Error handling command",
			logger.StringField("command", cmd.Command),
			logger.ErrorField(err))
		response = textPayload("An error occurred while processing your command.", responseEphemeral)
	}

	if response == nil {
		c.ack(envelope)
		return
	}
	c.ack(envelope, response)
}
