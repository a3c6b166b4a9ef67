// Command api serves the StoryTeller authentication endpoints.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/StoryTeller-v2/back-end/internal/infra/app"
	"github.com/StoryTeller-v2/back-end/internal/infra/config"
)

const envFileVar = "STORYTELLER_ENV_FILE"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storyteller-api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := loadEnvFile(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start %s: %w", cfg.App.Name, err)
	}

	return server.Run(ctx)
}

// loadEnvFile reads .env, or the file named by STORYTELLER_ENV_FILE. A
// missing default file is fine; a missing explicit one is not.
func loadEnvFile() error {
	path := os.Getenv(envFileVar)
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	err := godotenv.Load(path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return nil
	default:
		return fmt.Errorf("load env file %s: %w", path, err)
	}
}
