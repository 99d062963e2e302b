package main

import (
	"context"
	"fmt"
	"os"

	"deskshell/internal/app"
	"deskshell/internal/config"
	"deskshell/internal/transports/cli"
	"deskshell/pkg/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	lg := logger.New("")

	factory := func(ctx context.Context, configPath string) (cli.Runtime, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		a, err := app.NewApp(ctx, cfg, logger.New(cfg.App.LogLevel), app.Options{})
		if err != nil {
			return nil, err
		}
		return a, nil
	}

	root := cli.New(factory, buildVersion())
	if err := root.ExecuteContext(context.Background()); err != nil {
		lg.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
