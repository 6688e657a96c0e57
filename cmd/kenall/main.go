package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli/v3"

	"github.com/tzrikka/kenall/pkg/config"
	"github.com/tzrikka/kenall/pkg/http"
	"github.com/tzrikka/kenall/pkg/lambda"
	"github.com/tzrikka/kenall/pkg/socketmode"
	"github.com/tzrikka/kenall/pkg/thrippy"
	"github.com/tzrikka/xdg"
)

const (
	ConfigDirName  = "kenall"
	ConfigFileName = "config.toml"
)

func main() {
	buildInfo, _ := debug.ReadBuildInfo()
	configFilePath := configFile()

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:  "dev",
			Usage: "simple setup, but unsafe for production",
		},
	}
	flags = append(flags, config.Flags(configFilePath)...)
	flags = append(flags, thrippy.Flags(configFilePath)...)

	cmd := &cli.Command{
		Name:    "kenall",
		Usage:   "Slack bot that looks up Japanese postal codes with the kenall.jp API",
		Version: buildInfo.Main.Version,
		Flags:   flags,
		Commands: []*cli.Command{
			{
				Name:   "http",
				Usage:  "Receive Slack requests as HTTP webhooks",
				Flags:  http.Flags(configFilePath),
				Action: http.Start,
			},
			{
				Name:   "socket",
				Usage:  "Receive Slack requests over a Socket Mode WebSocket connection",
				Action: socketmode.Start,
			},
			{
				Name:   "lambda",
				Usage:  "Receive Slack requests in an AWS Lambda function",
				Action: lambda.Start,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// configFile returns the path to the app's configuration file.
// It also creates an empty file if it doesn't already exist.
func configFile() altsrc.StringSourcer {
	path, err := xdg.CreateFile(xdg.ConfigHome, ConfigDirName, ConfigFileName)
	if err != nil {
		log.Fatal().Err(err).Caller().Send()
	}
	return altsrc.StringSourcer(path)
}
