// Package config collects the bot's settings from CLI flags, environment
// variables, the application's configuration file, and optionally a
// Thrippy link, and validates them once at startup.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/kenall/pkg/bot"
	"github.com/tzrikka/kenall/pkg/kenall"
	"github.com/tzrikka/kenall/pkg/slack"
	"github.com/tzrikka/kenall/pkg/thrippy"
)

// Transports that deliver Slack requests to the bot.
const (
	TransportHTTP   = "http"
	TransportSocket = "socket"
	TransportLambda = "lambda"
)

// Config is constructed once at startup, and is read-only afterwards.
type Config struct {
	Transport string `validate:"oneof=http socket lambda"`

	BotToken      string `validate:"required"`
	SigningSecret string `validate:"required_unless=Transport socket"`
	AppToken      string `validate:"required_if=Transport socket"`
	SlackURL      string `validate:"required,url,endswith=/"`

	KenallAPIKey string        `validate:"required"`
	KenallURL    string        `validate:"required,url|hostname|hostname_port"`
	RateLimit    int           `validate:"gte=0"`
	Timeout      time.Duration `validate:"gt=0"`

	ProcessBeforeResponse bool
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Flags defines CLI flags for the bot's Slack and kenall settings. These flags can
// also be set using environment variables and the application's configuration file.
func Flags(configFilePath altsrc.StringSourcer) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "slack-bot-token",
			Usage: "Slack bot token (xoxb-...)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_BOT_TOKEN"),
				toml.TOML("slack.bot_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-signing-secret",
			Usage: "Slack app signing secret, to verify HTTP requests",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_SIGNING_SECRET"),
				toml.TOML("slack.signing_secret", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-app-token",
			Usage: "Slack app-level token (xapp-...), for Socket Mode",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_APP_TOKEN"),
				toml.TOML("slack.app_token", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "slack-api-url",
			Usage: "Slack Web API base URL (e.g. for GovSlack)",
			Value: slack.DefaultBaseURL,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("SLACK_API_URL"),
				toml.TOML("slack.api_url", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "kenall-api-key",
			Usage: "kenall.jp API key",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("KENALL_API_KEY"),
				toml.TOML("kenall.api_key", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "kenall-api-url",
			Usage: "kenall.jp API base URL",
			Value: kenall.DefaultBaseURL,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("KENALL_API_URL"),
				toml.TOML("kenall.api_url", configFilePath),
			),
		},
		&cli.IntFlag{
			Name:  "kenall-rate-limit",
			Usage: "maximum kenall.jp API requests per second (0 = unlimited)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("KENALL_RATE_LIMIT"),
				toml.TOML("kenall.rate_limit", configFilePath),
			),
		},
		&cli.DurationFlag{
			Name:  "kenall-timeout",
			Usage: "timeout for each kenall.jp API request",
			Value: kenall.DefaultTimeout,
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("KENALL_TIMEOUT"),
				toml.TOML("kenall.timeout", configFilePath),
			),
		},
		&cli.BoolFlag{
			Name:  "process-before-response",
			Usage: "finish handling requests before acknowledging them (e.g. in FaaS)",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("KENALL_PROCESS_BEFORE_RESPONSE"),
				toml.TOML("kenall.process_before_response", configFilePath),
			),
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "minimum log level (trace, debug, info, warn, error), default: debug, or trace in dev mode",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("KENALL_LOG_LEVEL"),
				toml.TOML("log.level", configFilePath),
			),
		},
	}
}

// Load reads and validates the bot's configuration for the given transport.
// Secrets that are not set directly are retrieved from a Thrippy link, if
// one is specified. Any error here should prevent the bot from starting.
func Load(ctx context.Context, cmd *cli.Command, transport string) (*Config, error) {
	cfg := &Config{
		Transport:             transport,
		BotToken:              cmd.String("slack-bot-token"),
		SigningSecret:         cmd.String("slack-signing-secret"),
		AppToken:              cmd.String("slack-app-token"),
		SlackURL:              cmd.String("slack-api-url"),
		KenallAPIKey:          cmd.String("kenall-api-key"),
		KenallURL:             cmd.String("kenall-api-url"),
		RateLimit:             cmd.Int("kenall-rate-limit"),
		Timeout:               cmd.Duration("kenall-timeout"),
		ProcessBeforeResponse: cmd.Bool("process-before-response"),
	}

	if id := cmd.String("thrippy-link-id"); id != "" {
		m, err := thrippy.LinkSecrets(ctx, cmd.String("thrippy-server-addr"), thrippy.SecureCreds(cmd), id)
		if err != nil {
			return nil, fmt.Errorf("failed to get secrets from Thrippy: %w", err)
		}
		if m == nil {
			return nil, fmt.Errorf("Thrippy link not found: %s", id)
		}
		cfg.fillSecrets(m)
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return nil, fmt.Errorf("invalid configuration: %s", describe(verrs))
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("transport", transport).Str("kenall_url", cfg.KenallURL).
		Bool("process_before_response", cfg.ProcessBeforeResponse).Msg("loaded configuration")
	return cfg, nil
}

// fillSecrets sets secrets from a Thrippy link, unless they are already set.
func (c *Config) fillSecrets(m map[string]string) {
	fill := func(field *string, key string) {
		if *field == "" {
			*field = m[key]
		}
	}

	fill(&c.BotToken, "bot_token")
	fill(&c.SigningSecret, "signing_secret")
	fill(&c.AppToken, "app_token")
	fill(&c.KenallAPIKey, "api_key")
}

// describe lists invalid fields without their values, which may be secrets.
func describe(errs validator.ValidationErrors) string {
	s := ""
	for i, e := range errs {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s (%s)", e.Field(), e.Tag())
	}
	return s
}

// Coordinator constructs the bot's API clients and request coordinator.
func (c *Config) Coordinator() (*bot.Coordinator, error) {
	kc, err := kenall.NewClient(c.KenallAPIKey,
		kenall.WithBaseURL(c.KenallURL),
		kenall.WithTimeout(c.Timeout),
		kenall.WithRateLimit(c.RateLimit),
	)
	if err != nil {
		return nil, err
	}

	opts := bot.Options{ProcessBeforeResponse: c.ProcessBeforeResponse}
	return bot.New(kc, c.SlackClient(), opts), nil
}

// SlackClient constructs a Slack Web API client for the configured base URL.
func (c *Config) SlackClient() *slack.Client {
	return slack.NewClient(c.BotToken).WithBaseURL(c.SlackURL)
}
