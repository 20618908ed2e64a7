package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/learnquest/learnquest/internal/app"
	"github.com/learnquest/learnquest/internal/config"
	"github.com/learnquest/learnquest/internal/logging"
)

func main() {
	// A missing .env is fine; env vars still apply.
	_ = godotenv.Load()

	flagConfig := pflag.String("config", os.Getenv("CONFIG_PATH"), "path to a config file")
	flagBaseURL := pflag.String("base-url", "", "backend base URL, overrides config")
	flagTokenDir := pflag.String("token-dir", "", "directory for the persisted credential")
	pflag.Parse()

	c, err := loadConfig(*flagConfig)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}

	if *flagBaseURL != "" {
		c.API.BaseURL = *flagBaseURL
	}
	if *flagTokenDir != "" {
		c.Token.Dir = *flagTokenDir
	}

	slog.SetDefault(slog.New(logging.NewHandler(os.Stderr, logging.ParseLevel(c.Log.Level))))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer stop()

	a, err := app.Init(c, os.Stdin, os.Stdout)
	if err != nil {
		log.Fatalf("Init app failed: %v", err)
	}

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		os.Exit(1)
	}
}

func loadConfig(file string) (app.Config, error) {
	c := app.DefaultConfig()

	if err := config.Load(file, &c); err != nil {
		return c, err
	}

	return c, nil
}
