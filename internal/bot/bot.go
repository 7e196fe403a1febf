package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/wallet_sessions/internal/charts"
	apperrors "github.com/ivanoskov/wallet_sessions/internal/errors"
	"github.com/ivanoskov/wallet_sessions/internal/model"
)

// Sender is the part of the Telegram API the bot writes to.
// *tgbotapi.BotAPI satisfies it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type updater interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Sessions is the session lifecycle the bot drives.
type Sessions interface {
	CreateSession(ctx context.Context, session model.Session, participants []model.NewParticipant) (*model.Session, error)
	ListSessionsByWallet(ctx context.Context, wallet string) ([]model.SessionSummary, error)
	JoinSession(ctx context.Context, sessionID, wallet string) (*model.Participant, error)
	ActivateSession(ctx context.Context, sessionID, wallet string) (*model.Session, error)
	GetSessionDetails(ctx context.Context, sessionID string) (*model.SessionDetails, error)
}

type Bot struct {
	api     Sender
	service Sessions
	charts  *charts.ChartGenerator
	states  *stateStore
}

// NewBot connects to the Telegram API with token.
func NewBot(token string, service Sessions) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}

	slog.Info("Authorized on Telegram", "account", api.Self.UserName)
	return New(api, service), nil
}

// New creates a bot writing through api.
func New(api Sender, service Sessions) *Bot {
	return &Bot{
		api:     api,
		service: service,
		charts:  charts.NewChartGenerator(),
		states:  newStateStore(),
	}
}

// Start runs long polling until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	poller, ok := b.api.(updater)
	if !ok {
		return errors.New("telegram client does not support long polling")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := poller.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			poller.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.handleUpdate(ctx, update); err != nil {
				slog.Error("Error handling update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// HandleWebhook processes one update delivered by a Telegram webhook.
func (b *Bot) HandleWebhook(ctx context.Context, body []byte) error {
	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		return fmt.Errorf("failed to decode update: %w", err)
	}

	return b.handleUpdate(ctx, update)
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil && update.CallbackQuery == nil {
		return nil
	}
	if update.Message != nil && update.Message.From == nil {
		return nil
	}

	if update.Message != nil && update.Message.IsCommand() {
		return b.handleCommand(ctx, update.Message)
	}

	if update.CallbackQuery != nil {
		return b.handleCallback(ctx, update.CallbackQuery)
	}

	return b.handleMessage(ctx, update.Message)
}

func (b *Bot) send(c tgbotapi.Chattable) error {
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	return b.send(tgbotapi.NewMessage(chatID, text))
}

func (b *Bot) sendErrorMessage(chatID int64, text string) error {
	return b.sendText(chatID, "❌ "+text)
}

// sendServiceError reports err to the chat. Store failures are logged and
// shown as a generic message.
func (b *Bot) sendServiceError(chatID int64, err error) error {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		slog.Error("Unexpected service error", "chat_id", chatID, "error", err)
		return b.sendErrorMessage(chatID, "Something went wrong, please try again later")
	}

	switch appErr.Code.Kind() {
	case apperrors.KindStoreFailure, apperrors.KindUnknown:
		slog.Error("Service failure", "chat_id", chatID, "code", appErr.Code, "error", err)
		return b.sendErrorMessage(chatID, "Something went wrong, please try again later")
	default:
		return b.sendErrorMessage(chatID, userMessage(appErr))
	}
}

func userMessage(err *apperrors.Error) string {
	switch err.Code {
	case apperrors.CodeUserNotFound:
		return "This wallet has no sessions yet"
	case apperrors.CodeSessionNotFound:
		return "Session not found"
	case apperrors.CodeParticipantAlreadyJoined:
		return "You have already joined this session"
	case apperrors.CodeSessionNotAllJoined:
		return "Not every participant has joined yet (" + err.Metadata["pending"] + " pending)"
	case apperrors.CodeSessionCallerNotParticipant:
		return "Only participants can activate the session"
	case apperrors.CodeSessionNoParticipants:
		return "The session has no participants"
	default:
		return err.Message
	}
}
