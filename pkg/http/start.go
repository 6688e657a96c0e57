package http

import (
	"context"

	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/kenall/pkg/config"
)

const (
	DefaultWebhookPort = 3000
)

// Flags defines CLI flags to configure the HTTP server. These flags can also
// be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "webhook-port",
			Usage: "local port number for Slack HTTP webhooks",
			Value: DefaultWebhookPort,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_WEBHOOK_PORT"),
				toml.TOML("http.webhook_port", configFilePath),
			),
		},
	}
}

// Start initializes the bot's HTTP server, backend clients, and logging.
func Start(ctx context.Context, cmd *cli.Command) error {
	config.InitLog(cmd.Bool("dev"), cmd.String("log-level"))
	ctx = log.Logger.WithContext(ctx)

	cfg, err := config.Load(ctx, cmd, config.TransportHTTP)
	if err != nil {
		log.Err(err).Msg("failed to load configuration")
		return err
	}

	c, err := cfg.Coordinator()
	if err != nil {
		log.Err(err).Msg("failed to initialize bot")
		return err
	}

	if cfg.ProcessBeforeResponse {
		log.Warn().Dur("kenall_timeout", cfg.Timeout).
			Msg("process-before-response mode may exceed Slack's 3-second ack deadline")
	}

	wt := responseTimeout(cfg.ProcessBeforeResponse, cfg.Timeout)
	return newHTTPServer(cmd.Int("webhook-port"), cfg.SigningSecret, wt, c).run()
}
