package config

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
)

// InitLog initializes the global logger, based on whether the bot is running
// in development mode or not. A non-empty level (see the "log-level" flag)
// overrides the mode's default minimum level.
func InitLog(devMode bool, level string) {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs

	if devMode {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05.000",
		}).With().Caller().Logger()
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Str("service", "kenall").Caller().Logger()
	}

	lvl, err := logLevel(devMode, level)
	zerolog.SetGlobalLevel(lvl)
	if err != nil {
		log.Warn().Err(err).Str("log_level", level).Msg("ignoring invalid log level")
	}

	if devMode {
		log.Warn().Msg("********** KENALL BOT DEV MODE - UNSAFE IN PRODUCTION! **********")
	}
}

func logLevel(devMode bool, level string) (zerolog.Level, error) {
	def := zerolog.DebugLevel
	if devMode {
		def = zerolog.TraceLevel
	}
	if level == "" {
		return def, nil
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return def, err
	}
	return lvl, nil
}
