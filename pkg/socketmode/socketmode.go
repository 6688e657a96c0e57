// Package socketmode receives Slack requests over a [Socket Mode] WebSocket
// connection, which doesn't require a public HTTP endpoint.
//
// [Socket Mode]: https://docs.slack.dev/apis/events-api/using-socket-mode
package socketmode

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/kenall/pkg/bot"
	"github.com/tzrikka/kenall/pkg/config"
	"github.com/tzrikka/kenall/pkg/slack"
	"github.com/tzrikka/kenall/pkg/websocket"
)

// Start initializes the bot's Socket Mode connection, backend clients, and logging.
// This is blocking, to keep the bot running.
func Start(ctx context.Context, cmd *cli.Command) error {
	config.InitLog(cmd.Bool("dev"), cmd.String("log-level"))
	ctx = log.Logger.WithContext(ctx)

	cfg, err := config.Load(ctx, cmd, config.TransportSocket)
	if err != nil {
		log.Err(err).Msg("failed to load configuration")
		return err
	}

	c, err := cfg.Coordinator()
	if err != nil {
		log.Err(err).Msg("failed to initialize bot")
		return err
	}

	api := cfg.SlackClient()
	url := func(ctx context.Context) (string, error) {
		return api.OpenConnection(ctx, cfg.AppToken)
	}

	ua := websocket.WithHeader("User-Agent", slack.UserAgent)
	conn, err := websocket.NewOrCachedClient(ctx, url, cfg.AppToken, ua)
	if err != nil {
		log.Err(err).Msg("failed to connect to Slack in Socket Mode")
		return err
	}
	defer conn.Close()

	return newListener(c, conn).run(ctx)
}

// dispatcher is implemented by [bot.Coordinator].
type dispatcher interface {
	Dispatch(ctx context.Context, req slack.Request) (bot.Response, error)
}

// connection is implemented by [websocket.Client].
type connection interface {
	IncomingMessages() <-chan []byte
	SendTextMessage(data []byte) error
	Reconnect()
}

type listener struct {
	bot  dispatcher
	conn connection
}

func newListener(d dispatcher, c connection) *listener {
	return &listener{bot: d, conn: c}
}

// run handles incoming envelopes until the context is canceled.
func (l *listener) run(ctx context.Context) error {
	msgs := l.conn.IncomingMessages()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("Socket Mode connection closed")
			}
			l.handleMessage(ctx, msg)
		}
	}
}

func (l *listener) handleMessage(ctx context.Context, msg []byte) {
	logger := zerolog.Ctx(ctx)

	e := slack.Envelope{}
	if err := json.Unmarshal(msg, &e); err != nil {
		logger.Warn().Err(err).Bytes("message", msg).Msg("failed to parse Socket Mode envelope")
		return
	}

	switch e.Type {
	case slack.EnvelopeHello:
		logger.Info().Msg("Socket Mode connection established")
	case slack.EnvelopeDisconnect:
		logger.Info().Str("reason", e.Reason).Msg("Slack requested to refresh Socket Mode connection")
		l.conn.Reconnect()
	default:
		if e.EnvelopeID == "" {
			logger.Debug().Str("type", e.Type).Msg("ignoring Socket Mode message without envelope ID")
			return
		}
		go l.handleEnvelope(ctx, e)
	}
}

// handleEnvelope acknowledges an envelope within Slack's 3-second limit,
// and then runs the response's continuation, if there is one.
func (l *listener) handleEnvelope(ctx context.Context, e slack.Envelope) {
	logger := zerolog.Ctx(ctx).With().Str("envelope_id", e.EnvelopeID).Str("envelope_type", e.Type).Logger()
	ctx = logger.WithContext(ctx)

	var resp bot.Response
	req, err := e.Request()
	if err != nil {
		logger.Warn().Err(err).Msg("bad request: failed to parse Socket Mode payload")
	} else {
		resp, err = l.bot.Dispatch(ctx, *req)
		if err != nil {
			resp = bot.Response{Ack: bot.FailureAck(*req)}
		}
	}

	ack, err := json.Marshal(slack.EnvelopeAck{EnvelopeID: e.EnvelopeID, Payload: resp.Ack})
	if err != nil {
		logger.Err(err).Msg("failed to serialize Socket Mode acknowledgment")
		return
	}
	if err := l.conn.SendTextMessage(ack); err != nil {
		logger.Err(err).Msg("failed to acknowledge Socket Mode envelope")
		return
	}

	resp.Spawn(ctx)
}
