package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivanoskov/wallet_sessions/internal/app"
	"github.com/ivanoskov/wallet_sessions/internal/bot"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("Bot failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, svc, cleanup, err := app.Bootstrap(ctx)
	defer cleanup()
	if err != nil {
		return err
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	b, err := bot.NewBot(cfg.TelegramToken, svc)
	if err != nil {
		return err
	}

	slog.Info("Bot started, polling for updates")
	return b.Start(ctx)
}
