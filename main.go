package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joshjon/kit/config"
	"github.com/joshjon/kit/log"
	"github.com/urfave/cli/v2"

	"github.com/rivulet-sh/rivulet/app"
	"github.com/rivulet-sh/rivulet/logkey"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()

	cliApp := cli.NewApp()
	cliApp.Name = "rivulet"
	cliApp.Usage = "Namespace and service mapping catalog for stream processing platforms"

	cliApp.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Value:   "",
			Usage:   "path to yaml config file (required if not using env vars)",
		},
	}

	logger := log.NewLogger()

	cliApp.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "[default] runs the catalog server",
			Action: func(c *cli.Context) error {
				var cfg app.ServerConfig
				config.Load(c.String("config"), &cfg)
				logger = loggerFromConfig(cfg.Logger).With(logkey.Service, "catalog")
				return app.Run(ctx, logger, cfg)
			},
		},
	}

	cliApp.DefaultCommand = "run"

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		logger.Error("failed to start service", "error", err)
		os.Exit(1)
	}
}

func loggerFromConfig(cfg app.LoggerConfig) log.Logger {
	level, ok := log.ParseLevel(cfg.Level)
	if !ok {
		level = slog.LevelInfo
	}
	opts := []log.LoggerOption{log.WithLevel(level)}
	if !cfg.Structured {
		opts = append(opts, log.WithDevelopment())
	}
	return log.NewLogger(opts...)
}
