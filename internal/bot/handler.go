package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ivanoskov/wallet_sessions/internal/model"
	"github.com/ivanoskov/wallet_sessions/internal/service"
)

const helpText = "Commands:\n" +
	"/wallet <address> - remember your wallet\n" +
	"/create <name> <wallet>... - start a session with the given participants\n" +
	"/sessions [wallet] - list sessions\n" +
	"/join <session id> [wallet] - join a session\n" +
	"/activate <session id> [wallet] - activate a session once everyone joined\n" +
	"/details <session id> - show participants and expenses"

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) error {
	args := strings.Fields(message.CommandArguments())

	switch message.Command() {
	case "start":
		return b.handleStart(message)
	case "help":
		return b.sendText(message.Chat.ID, helpText)
	case "wallet":
		return b.handleWallet(message, args)
	case "create":
		return b.handleCreate(ctx, message, args)
	case "sessions":
		return b.handleSessions(ctx, message.Chat.ID, message.From.ID, args)
	case "join":
		return b.handleJoin(ctx, message.Chat.ID, message.From.ID, args)
	case "activate":
		return b.handleActivate(ctx, message.Chat.ID, message.From.ID, args)
	case "details":
		return b.handleDetails(ctx, message.Chat.ID, args)
	default:
		return b.sendText(message.Chat.ID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) error {
	msg := tgbotapi.NewMessage(message.Chat.ID,
		"Welcome to the shared expenses bot! 💰\n\n"+
			"Start a session with friends, wait for everyone to join, "+
			"then track who spent what.\n\n"+helpText)
	msg.ReplyMarkup = b.getMainKeyboard()
	return b.send(msg)
}

func (b *Bot) handleWallet(message *tgbotapi.Message, args []string) error {
	if len(args) == 0 {
		b.states.await(message.From.ID, model.AwaitingWallet)
		return b.sendText(message.Chat.ID, "Send me your wallet address:")
	}
	return b.rememberWallet(message.Chat.ID, message.From.ID, args[0])
}

func (b *Bot) rememberWallet(chatID, userID int64, wallet string) error {
	b.states.setWallet(userID, wallet)
	slog.Info("Wallet remembered", "user_id", userID, "wallet", wallet)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf("Wallet %s saved ✅", wallet))
	msg.ReplyMarkup = b.getMainKeyboard()
	return b.send(msg)
}

// handleCreate adds the sender's own wallet, if known, as a joined participant.
func (b *Bot) handleCreate(ctx context.Context, message *tgbotapi.Message, args []string) error {
	chatID := message.Chat.ID
	if len(args) == 0 {
		return b.sendErrorMessage(chatID, "Usage: /create <name> <wallet>...")
	}

	own := b.states.get(message.From.ID).WalletAddress
	participants := make([]model.NewParticipant, 0, len(args))
	hasOwn := false
	for _, wallet := range args[1:] {
		joined := wallet == own
		hasOwn = hasOwn || joined
		participants = append(participants, model.NewParticipant{WalletAddress: wallet, Joined: joined})
	}
	if own != "" && !hasOwn {
		participants = append(participants, model.NewParticipant{WalletAddress: own, Joined: true})
	}
	if len(participants) == 0 {
		return b.sendErrorMessage(chatID, "Add at least one participant wallet, or set yours with /wallet")
	}

	session, err := b.service.CreateSession(ctx, model.Session{Name: args[0], State: model.SessionPending}, participants)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}

	return b.sendText(chatID, fmt.Sprintf(
		"Session %q created ✅\nID: %s\nParticipants: %d\n\nEveryone can join with /join %s",
		session.Name, session.ID, len(participants), session.ID,
	))
}

func (b *Bot) handleSessions(ctx context.Context, chatID, userID int64, args []string) error {
	wallet, ok := b.walletFor(userID, args)
	if !ok {
		return b.askForWallet(chatID, userID)
	}

	sessions, err := b.service.ListSessionsByWallet(ctx, wallet)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}
	if len(sessions) == 0 {
		return b.sendText(chatID, "No sessions yet. Start one with /create")
	}

	var text strings.Builder
	text.WriteString("📋 Your sessions:\n")
	for _, s := range sessions {
		status := "⏳ invited"
		if s.IsJoined {
			status = "✅ joined"
		}
		fmt.Fprintf(&text, "\n• %s (%s) %s\n  %s", s.Name, s.State, status, s.ID)
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = b.getSessionsKeyboard(sessions)
	return b.send(msg)
}

func (b *Bot) handleJoin(ctx context.Context, chatID, userID int64, args []string) error {
	if len(args) == 0 {
		return b.sendErrorMessage(chatID, "Usage: /join <session id> [wallet]")
	}
	return b.joinSession(ctx, chatID, userID, args[0], args[1:])
}

func (b *Bot) joinSession(ctx context.Context, chatID, userID int64, sessionID string, args []string) error {
	wallet, ok := b.walletFor(userID, args)
	if !ok {
		return b.askForWallet(chatID, userID)
	}

	if _, err := b.service.JoinSession(ctx, sessionID, wallet); err != nil {
		return b.sendServiceError(chatID, err)
	}
	return b.sendText(chatID, "You joined the session ✅")
}

func (b *Bot) handleActivate(ctx context.Context, chatID, userID int64, args []string) error {
	if len(args) == 0 {
		return b.sendErrorMessage(chatID, "Usage: /activate <session id> [wallet]")
	}
	return b.activateSession(ctx, chatID, userID, args[0], args[1:])
}

func (b *Bot) activateSession(ctx context.Context, chatID, userID int64, sessionID string, args []string) error {
	wallet, ok := b.walletFor(userID, args)
	if !ok {
		return b.askForWallet(chatID, userID)
	}

	session, err := b.service.ActivateSession(ctx, sessionID, wallet)
	if err != nil {
		return b.sendServiceError(chatID, err)
	}
	return b.sendText(chatID, fmt.Sprintf("Session %q is %s 🚀", session.Name, session.State))
}

func (b *Bot) handleDetails(ctx context.Context, chatID int64, args []string) error {
	if len(args) == 0 {
		return b.sendErrorMessage(chatID, "Usage: /details <session id>")
	}

	details, err := b.service.GetSessionDetails(ctx, args[0])
	if err != nil {
		return b.sendServiceError(chatID, err)
	}

	report := service.BuildReport(details)
	if err := b.sendText(chatID, report.Text); err != nil {
		return err
	}

	renders := []struct {
		name   string
		render func(*service.SessionReport) ([]byte, error)
	}{
		{"share.png", b.charts.GenerateSpendingShare},
		{"timeline.png", b.charts.GenerateSpendingTimeline},
	}
	for _, c := range renders {
		img, err := c.render(report)
		if err != nil {
			slog.Error("Failed to render chart", "chart", c.name, "session_id", args[0], "error", err)
			continue
		}
		if img == nil {
			continue
		}
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: c.name, Bytes: img})
		if err := b.send(photo); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) error {
	if callback.Message == nil {
		return nil
	}
	chatID := callback.Message.Chat.ID
	userID := callback.From.ID

	var err error
	switch data := callback.Data; {
	case strings.HasPrefix(data, callbackDetails):
		err = b.handleDetails(ctx, chatID, []string{strings.TrimPrefix(data, callbackDetails)})
	case strings.HasPrefix(data, callbackJoin):
		err = b.joinSession(ctx, chatID, userID, strings.TrimPrefix(data, callbackJoin), nil)
	case strings.HasPrefix(data, callbackActivate):
		err = b.activateSession(ctx, chatID, userID, strings.TrimPrefix(data, callbackActivate), nil)
	}

	// Answer the callback so the client stops showing a spinner.
	if _, reqErr := b.api.Request(tgbotapi.NewCallback(callback.ID, "")); reqErr != nil {
		slog.Warn("Failed to answer callback", "callback_id", callback.ID, "error", reqErr)
	}
	return err
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) error {
	chatID := message.Chat.ID
	userID := message.From.ID
	text := strings.TrimSpace(message.Text)

	if b.states.get(userID).AwaitingAction == model.AwaitingWallet && text != "" {
		return b.rememberWallet(chatID, userID, text)
	}

	switch text {
	case buttonSessions:
		return b.handleSessions(ctx, chatID, userID, nil)
	case buttonSetWallet:
		return b.handleWallet(message, nil)
	}

	msg := tgbotapi.NewMessage(chatID, "Choose an action:")
	msg.ReplyMarkup = b.getMainKeyboard()
	return b.send(msg)
}

// walletFor prefers an explicit wallet argument over the remembered one.
func (b *Bot) walletFor(userID int64, args []string) (string, bool) {
	if len(args) > 0 && args[0] != "" {
		return args[0], true
	}
	wallet := b.states.get(userID).WalletAddress
	return wallet, wallet != ""
}

func (b *Bot) askForWallet(chatID, userID int64) error {
	b.states.await(userID, model.AwaitingWallet)
	return b.sendText(chatID, "I don't know your wallet yet. Send me your wallet address:")
}
