package main

import (
	"cmp"
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := shared.LoadEnv(); err != nil {
		logger.Warn("ignoring .env", "error", err)
	}

	configPath := cmp.Or(os.Getenv(shared.EnvConfigPath), "config.toml")
	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("using default configuration", "path", configPath, "error", err)
		}
	}

	config.ApplyEnv()
	if err := config.Validate(); err != nil {
		logger.Fatalf("configuration error: %v", err)
	}
	shared.ConfigureLogger(logger, config.Logging)

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:     "marquee",
		Usage:    "Browse movies and TV shows and keep your lists in sync",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
