package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/ivanoskov/wallet_sessions/internal/app"
	"github.com/ivanoskov/wallet_sessions/internal/bot"
)

// Request is the payload the API gateway passes to the function.
type Request struct {
	Body string `json:"body"`
}

// Response is what the function returns to the API gateway.
type Response struct {
	StatusCode int               `json:"statusCode"`
	Body       string            `json:"body"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Handler is the serverless entry point for Telegram webhook updates.
func Handler(ctx context.Context, request Request) (*Response, error) {
	cfg, svc, cleanup, err := app.Bootstrap(ctx)
	defer cleanup()
	if err != nil {
		return errorResponse(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		return errorResponse(err)
	}

	b, err := bot.NewBot(cfg.TelegramToken, svc)
	if err != nil {
		return errorResponse(err)
	}

	if err := b.HandleWebhook(ctx, []byte(request.Body)); err != nil {
		return errorResponse(err)
	}

	return &Response{
		StatusCode: http.StatusOK,
		Body:       "",
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

func errorResponse(err error) (*Response, error) {
	slog.Error("Webhook failed", "error", err)
	return &Response{
		StatusCode: http.StatusInternalServerError,
		Body:       err.Error(),
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
	}, nil
}

// main serves the handler over plain HTTP for local testing.
func main() {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp, _ := Handler(r.Context(), Request{Body: string(body)})
		for k, v := range resp.Headers {
			w.Header().Set(k, v)
		}
		w.WriteHeader(resp.StatusCode)
		io.WriteString(w, resp.Body)
	})

	slog.Info("Webhook function listening", "address", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
