package slack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/lewisedginton/attendance_bot/internal/attendance"
	"github.com/lewisedginton/attendance_bot/internal/bot"
	"github.com/lewisedginton/attendance_bot/internal/config"
	"github.com/lewisedginton/attendance_bot/pkg/logger"
)

const subtypeMessageChanged = "message_changed"

// MessageHandler runs the attendance pipeline for one message.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg attendance.Message) (bot.Result, error)
}

// QueryAnswerer turns a natural-language question into a Slack reply.
type QueryAnswerer interface {
	Answer(ctx context.Context, text string) string
}

// WebAPI is the subset of the Slack Web API used by the connector.
type WebAPI interface {
	UsersAPI
	AuthTestContext(ctx context.Context) (*slack.AuthTestResponse, error)
	GetBotInfoContext(ctx context.Context, parameters slack.GetBotInfoParameters) (*slack.Bot, error)
	AddReactionContext(ctx context.Context, name string, item slack.ItemRef) error
}

type socketClient interface {
	Ack(req socketmode.Request, payload ...interface{})
	RunContext(ctx context.Context) error
}

// Options tunes message processing and the slash commands.
type Options struct {
	QueryCommand      string
	HelpCommand       string
	AckReaction       string
	ResponseInChannel bool
	MaxConcurrency    int
	ProcessTimeout    time.Duration
}

// OptionsFromConfig maps the attendance settings onto connector options.
func OptionsFromConfig(cfg config.AttendanceConfig) Options {
	return Options{
		QueryCommand:      cfg.QueryCommand,
		HelpCommand:       cfg.HelpCommand,
		AckReaction:       cfg.AckReaction,
		ResponseInChannel: cfg.ResponseInChannel,
		MaxConcurrency:    cfg.MaxConcurrency,
		ProcessTimeout:    cfg.ProcessTimeout,
	}
}

func (o Options) withDefaults() Options {
	if o.QueryCommand == "" {
		o.QueryCommand = "/leave-table"
	}
	if o.HelpCommand == "" {
		o.HelpCommand = "/attendance-help"
	}
	if o.MaxConcurrency < 1 {
		o.MaxConcurrency = 8
	}
	if o.ProcessTimeout <= 0 {
		o.ProcessTimeout = time.Minute
	}
	return o
}

// Connector represents the Slack Socket Mode connector
type Connector struct {
	api        WebAPI
	socket     socketClient
	events     <-chan socketmode.Event
	handler    MessageHandler
	queries    QueryAnswerer
	commands   *CommandRegistry
	httpClient *http.Client
	logger     logger.Logger
	opts       Options

	sem   chan struct{}
	wg    sync.WaitGroup
	ready atomic.Bool
}

// NewClient validates the tokens and builds the Web API client.
func NewClient(cfg config.SlackConfig) (*slack.Client, error) {
	if !strings.HasPrefix(cfg.BotToken, "xoxb-") {
		return nil, fmt.Errorf("invalid bot token format, expected xoxb-*")
	}
	if !strings.HasPrefix(cfg.AppToken, "xapp-") {
		return nil, fmt.Errorf("invalid app token format, expected xapp-*")
	}
	return slack.New(
		cfg.BotToken,
		slack.OptionAppLevelToken(cfg.AppToken),
		slack.OptionDebug(cfg.Debug),
	), nil
}

// NewConnector creates a Socket Mode connector on top of client.
func NewConnector(client *slack.Client, cfg config.SlackConfig, opts Options, handler MessageHandler, queries QueryAnswerer, log logger.Logger) (*Connector, error) {
	if client == nil {
		return nil, errors.New("slack client is required")
	}
	sm := socketmode.New(client, socketmode.OptionDebug(cfg.Debug))
	return newConnector(client, sm, sm.Events, opts, handler, queries, log)
}

func newConnector(api WebAPI, socket socketClient, events <-chan socketmode.Event, opts Options, handler MessageHandler, queries QueryAnswerer, log logger.Logger) (*Connector, error) {
	if handler == nil {
		return nil, errors.New("message handler is required")
	}
	if queries == nil {
		return nil, errors.New("query answerer is required")
	}
	opts = opts.withDefaults()

	c := &Connector{
		api:        api,
		socket:     socket,
		events:     events,
		handler:    handler,
		queries:    queries,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     log.WithFields(logger.StringField("connector", "slack")),
		opts:       opts,
		sem:        make(chan struct{}, opts.MaxConcurrency),
	}
	c.setupCommands()
	return c, nil
}

// Start begins the Socket Mode connection and event handling. It blocks until
// ctx is cancelled or the connection fails for good.
func (c *Connector) Start(ctx context.Context) error {
	c.logger.Info("Starting Slack Socket Mode connector",
		logger.StringField("query_command", c.opts.QueryCommand),
		logger.IntField("max_concurrency", c.opts.MaxConcurrency))

	go c.run(ctx)

	err := c.socket.RunContext(ctx)
	c.ready.Store(false)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (c *Connector) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case envelope, ok := <-c.events:
			if !ok {
				return
			}
			c.dispatch(ctx, envelope)
		}
	}
}

func (c *Connector) dispatch(ctx context.Context, envelope socketmode.Event) {
	switch envelope.Type {
	case socketmode.EventTypeConnecting:
		c.logger.Info("Connecting to Slack with Socket Mode")

	case socketmode.EventTypeConnectionError:
		c.ready.Store(false)
		c.logger.Warn("Slack connection failed", logger.StringField("data", fmt.Sprintf("%v", envelope.Data)))

	case socketmode.EventTypeConnected:
		c.ready.Store(true)
		c.logger.Info("Connected to Slack with Socket Mode")

	case socketmode.EventTypeHello:

	case socketmode.EventTypeEventsAPI:
		c.ack(envelope)
		eventsAPIEvent, ok := envelope.Data.(slackevents.EventsAPIEvent)
		if !ok {
			c.logger.Debug("Ignored event", logger.StringField("data", fmt.Sprintf("%+v", envelope.Data)))
			return
		}
		c.handleEvent(ctx, eventsAPIEvent)

	case socketmode.EventTypeSlashCommand:
		c.handleSlashCommand(ctx, envelope)

	default:
		c.ack(envelope)
		c.logger.Debug("Unsupported event type received", logger.StringField("type", string(envelope.Type)))
	}
}

// ack acknowledges envelopes that carry a request.
func (c *Connector) ack(envelope socketmode.Event, payload ...interface{}) {
	if envelope.Request == nil {
		return
	}
	c.socket.Ack(*envelope.Request, payload...)
}

func (c *Connector) handleEvent(ctx context.Context, event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	ev, ok := event.InnerEvent.Data.(*slackevents.MessageEvent)
	if !ok {
		return
	}
	msg, ok := toMessage(ev)
	if !ok {
		c.logger.Debug("Skipping message event",
			logger.StringField("subtype", ev.SubType),
			logger.ChannelField(ev.Channel))
		return
	}
	c.process(ctx, msg)
}

// toMessage converts user-authored messages and their edits. Bot traffic and
// other subtypes are dropped.
func toMessage(ev *slackevents.MessageEvent) (attendance.Message, bool) {
	if ev.BotID != "" {
		return attendance.Message{}, false
	}
	switch ev.SubType {
	case "":
		// attachments and blocks only arrive on the embedded message
		body := slack.Msg{Text: ev.Text}
		if ev.Message != nil {
			body = *ev.Message
			if body.Text == "" {
				body.Text = ev.Text
			}
		}
		return attendance.Message{
			UserID:    ev.User,
			ChannelID: ev.Channel,
			Text:      extractMessageText(slack.Message{Msg: body}),
			TS:        ev.TimeStamp,
		}, true

	case subtypeMessageChanged:
		edited := ev.Message
		if edited == nil || edited.BotID != "" || edited.User == "" {
			return attendance.Message{}, false
		}
		msg := attendance.Message{
			UserID:    edited.User,
			ChannelID: ev.Channel,
			Text:      extractMessageText(slack.Message{Msg: *edited}),
			TS:        edited.Timestamp,
			IsEdit:    true,
		}
		if ev.PreviousMessage != nil {
			msg.OriginalTS = ev.PreviousMessage.Timestamp
		}
		return msg, true
	}
	return attendance.Message{}, false
}

// process hands msg to the pipeline on its own goroutine, bounded by the
// concurrency limit.
func (c *Connector) process(ctx context.Context, msg attendance.Message) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer func() { <-c.sem }()

		ctx, correlationID := logger.EnsureCorrelationID(ctx)
		ctx, cancel := context.WithTimeout(ctx, c.opts.ProcessTimeout)
		defer cancel()
		log := c.logger.WithCorrelationID(correlationID).WithFields(
			logger.UserIDField(msg.UserID),
			logger.ChannelField(msg.ChannelID),
			logger.MessageTSField(msg.TS),
		)

		defer func() {
			if r := recover(); r != nil {
				log.Error("Panic while processing message",
					logger.StringField("panic", fmt.Sprintf("%v", r)),
					logger.StringField("stack", string(debug.Stack())))
			}
		}()

		res, err := c.handler.HandleMessage(ctx, msg)
		if err != nil {
			log.Error("Error processing message", logger.BoolField("edit", msg.IsEdit), logger.ErrorField(err))
			return
		}
		if res.Skipped || c.opts.AckReaction == "" {
			return
		}
		if err := c.api.AddReactionContext(ctx, c.opts.AckReaction, slack.NewRefToMessage(msg.ChannelID, msg.TS)); err != nil {
			log.Warn("Failed to add reaction", logger.StringField("reaction", c.opts.AckReaction), logger.ErrorField(err))
		}
	}()
}

// Ready reports whether the Socket Mode connection is up.
func (c *Connector) Ready() bool {
	return c.ready.Load()
}

// Stop waits for in-flight messages and slash command replies to finish.
// The socket itself closes when the Start context is cancelled.
func (c *Connector) Stop() error {
	c.logger.Info("Stopping Slack connector")
	c.wg.Wait()
	return nil
}

// GetBotInfo returns information about the bot
func (c *Connector) GetBotInfo(ctx context.Context) (*slack.Bot, error) {
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return nil, err
	}
	return c.api.GetBotInfoContext(ctx, slack.GetBotInfoParameters{Bot: auth.BotID})
}
