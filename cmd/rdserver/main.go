package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/RyanBlaney/rdstat/internal/config"
	"github.com/RyanBlaney/rdstat/logging"
	"github.com/RyanBlaney/rdstat/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logging.Debug("no .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal(err, "failed to load configuration")
		return
	}
	logging.SetLevel(cfg.LogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logging.Fatal(err, "server stopped")
	}
	logging.Info("server shut down")
}
