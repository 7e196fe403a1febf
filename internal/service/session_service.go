package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/ivanoskov/wallet_sessions/internal/errors"
	"github.com/ivanoskov/wallet_sessions/internal/metrics"
	"github.com/ivanoskov/wallet_sessions/internal/model"
	"github.com/ivanoskov/wallet_sessions/internal/repository"
)

// UserResolver maps wallet addresses to users.
type UserResolver interface {
	// FindByWallet returns repository.ErrNoRows when the wallet is unknown.
	FindByWallet(ctx context.Context, wallet string) (*model.User, error)
	// FindOrCreate returns the wallet's user, creating it when absent.
	FindOrCreate(ctx context.Context, wallet string) (*model.User, error)
}

// SessionService implements the session lifecycle on top of a Store.
//
// Join and Activate read then write without a guard, so concurrent callers on
// the same session can race: two joins may both insert a row, and activation
// may observe a participant list that changes before the update lands.
type SessionService struct {
	store        repository.Store
	sessions     *repository.SessionRepository
	participants *repository.ParticipantRepository
	expenses     *repository.ExpenseRepository
	users        UserResolver
	now          func() time.Time
}

// Option configures a SessionService.
type Option func(*SessionService)

// WithUserResolver replaces the users-table resolver.
func WithUserResolver(resolver UserResolver) Option {
	return func(s *SessionService) {
		s.users = resolver
	}
}

// WithClock overrides time.Now for participation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SessionService) {
		s.now = now
	}
}

// NewSessionService creates a SessionService over store.
func NewSessionService(store repository.Store, opts ...Option) *SessionService {
	s := &SessionService{
		store:        store,
		sessions:     repository.NewSessionRepository(store),
		participants: repository.NewParticipantRepository(store),
		expenses:     repository.NewExpenseRepository(store),
		users:        repository.NewUserRepository(store),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession inserts the session and one participation row per invitee.
// Wallets are resolved before the session row is written, so an unknown
// wallet never leaves a session behind.
// Without a transactional store, a failed participation insert deletes the
// session row again.
func (s *SessionService) CreateSession(ctx context.Context, session model.Session, invites []model.NewParticipant) (_ *model.Session, err error) {
	defer func() { metrics.ObserveOperation("create_session", err) }()

	slog.Info("CreateSession request received",
		"name", session.Name,
		"participants_count", len(invites),
	)

	invites, err = normalizeInvites(invites)
	if err != nil {
		return nil, err
	}
	if session.State == "" {
		session.State = model.SessionPending
	}
	now := s.now()
	session.CreatedAt = model.NewTimestamp(now)

	userIDs := make([]string, len(invites))
	for i, invite := range invites {
		user, err := s.users.FindOrCreate(ctx, invite.WalletAddress)
		if err != nil {
			slog.Error("CreateSession failed to resolve participant", "wallet", invite.WalletAddress, "error", err)
			return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to resolve participant "+invite.WalletAddress, err)
		}
		userIDs[i] = user.ID
	}

	if tx, ok := s.store.(repository.Transactor); ok {
		err = tx.WithinTx(ctx, func(st repository.Store) error {
			if err := createSessionRow(ctx, repository.NewSessionRepository(st), &session); err != nil {
				return err
			}
			return addParticipants(ctx, repository.NewParticipantRepository(st), session.ID, invites, userIDs, now)
		})
		if err != nil {
			slog.Error("CreateSession failed", "error", err)
			return nil, err
		}
	} else {
		if err := createSessionRow(ctx, s.sessions, &session); err != nil {
			slog.Error("CreateSession failed", "error", err)
			return nil, err
		}
		if err := addParticipants(ctx, s.participants, session.ID, invites, userIDs, now); err != nil {
			s.rollbackSession(ctx, session.ID)
			slog.Error("CreateSession failed", "session_id", session.ID, "error", err)
			return nil, err
		}
	}

	slog.Info("Session created", "session_id", session.ID, "participants_count", len(invites))
	return &session, nil
}

// ListSessionsByWallet returns every session the wallet participates in.
func (s *SessionService) ListSessionsByWallet(ctx context.Context, wallet string) (_ []model.SessionSummary, err error) {
	defer func() { metrics.ObserveOperation("list_sessions", err) }()

	slog.Info("ListSessionsByWallet request received", "wallet", wallet)

	user, err := s.findUser(ctx, wallet)
	if err != nil {
		return nil, err
	}

	rows, err := s.participants.ListByUser(ctx, user.ID)
	if err != nil {
		slog.Error("ListSessionsByWallet failed", "user_id", user.ID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to get sessions", err)
	}

	summaries := summarizeSessions(rows)
	if skipped := len(rows) - len(summaries); skipped > 0 {
		slog.Warn("Participation rows without a session", "user_id", user.ID, "count", skipped)
	}

	slog.Info("ListSessionsByWallet successful", "wallet", wallet, "count", len(summaries))
	return summaries, nil
}

// JoinSession marks the wallet's participation as joined, adding a row when
// the wallet was not invited. Joining twice is a conflict.
func (s *SessionService) JoinSession(ctx context.Context, sessionID, wallet string) (_ *model.Participant, err error) {
	defer func() { metrics.ObserveOperation("join_session", err) }()

	slog.Info("JoinSession request received", "session_id", sessionID, "wallet", wallet)

	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "session id is required")
	}
	user, err := s.findUser(ctx, wallet)
	if err != nil {
		return nil, err
	}
	if _, err := s.getSession(ctx, sessionID); err != nil {
		return nil, err
	}

	existing, err := s.participants.Find(ctx, sessionID, user.ID)
	switch {
	case err == nil && existing.Joined:
		return nil, apperrors.WithMetadata(apperrors.CodeParticipantAlreadyJoined, "user already joined the session",
			map[string]string{"session_id": sessionID, "user_id": user.ID})

	case err == nil:
		joined, err := s.participants.MarkJoined(ctx, sessionID, user.ID, s.now())
		if err != nil {
			slog.Error("JoinSession failed", "session_id", sessionID, "error", err)
			return nil, apperrors.Wrap(apperrors.CodeParticipantWriteFailed, "failed to join session", err)
		}
		slog.Info("Session joined", "session_id", sessionID, "user_id", user.ID)
		return joined, nil

	case errors.Is(err, repository.ErrNoRows):
		created, err := s.participants.Create(ctx, model.Participant{
			SessionID:  sessionID,
			UserID:     user.ID,
			Joined:     true,
			TotalSpent: 0,
			LastUpdate: model.NewTimestamp(s.now()),
		})
		if err != nil {
			slog.Error("JoinSession failed", "session_id", sessionID, "error", err)
			return nil, apperrors.Wrap(apperrors.CodeParticipantWriteFailed, "failed to join session", err)
		}
		slog.Info("Session joined as new participant", "session_id", sessionID, "user_id", user.ID)
		return created, nil

	default:
		slog.Error("JoinSession failed", "session_id", sessionID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to look up participation", err)
	}
}

// ActivateSession moves a pending session to Active once every participant
// has joined. The caller must be one of the participants. Activating an
// active session returns it unchanged.
func (s *SessionService) ActivateSession(ctx context.Context, sessionID, wallet string) (_ *model.Session, err error) {
	defer func() { metrics.ObserveOperation("activate_session", err) }()

	slog.Info("ActivateSession request received", "session_id", sessionID, "wallet", wallet)

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsActive() {
		slog.Info("Session already active", "session_id", sessionID)
		return session, nil
	}

	rows, err := s.participants.ListBySession(ctx, sessionID)
	if err != nil {
		slog.Error("ActivateSession failed", "session_id", sessionID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to get participants", err)
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.CodeSessionNoParticipants, "session has no participants")
	}
	if !hasWallet(rows, strings.TrimSpace(wallet)) {
		return nil, apperrors.WithMetadata(apperrors.CodeSessionCallerNotParticipant, "caller is not a participant of the session",
			map[string]string{"session_id": sessionID, "wallet": wallet})
	}
	if pending := countPending(rows); pending > 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeSessionNotAllJoined, "not all participants have joined",
			map[string]string{"session_id": sessionID, "pending": strconv.Itoa(pending)})
	}

	updated, err := s.sessions.UpdateState(ctx, sessionID, model.SessionActive)
	if err != nil {
		slog.Error("ActivateSession failed", "session_id", sessionID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeSessionUpdateFailed, "failed to activate session", err)
	}

	slog.Info("Session activated", "session_id", sessionID)
	return updated, nil
}

// GetSessionDetails aggregates the session, its participants and its expenses.
func (s *SessionService) GetSessionDetails(ctx context.Context, sessionID string) (_ *model.SessionDetails, err error) {
	defer func() { metrics.ObserveOperation("session_details", err) }()

	slog.Info("GetSessionDetails request received", "session_id", sessionID)

	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	rows, err := s.participants.ListBySession(ctx, sessionID)
	if err != nil {
		slog.Error("GetSessionDetails failed", "session_id", sessionID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to get participants", err)
	}

	expenses, err := s.expenses.ListBySession(ctx, sessionID)
	if err != nil {
		slog.Error("GetSessionDetails failed", "session_id", sessionID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to get expenses", err)
	}

	details := buildDetails(session, rows, expenses)

	slog.Info("GetSessionDetails successful",
		"session_id", sessionID,
		"participants_count", len(details.Participants),
		"expenses_count", len(details.Expenses),
	)
	return details, nil
}

func (s *SessionService) findUser(ctx context.Context, wallet string) (*model.User, error) {
	wallet = strings.TrimSpace(wallet)
	if wallet == "" {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "wallet address is required")
	}

	user, err := s.users.FindByWallet(ctx, wallet)
	if errors.Is(err, repository.ErrNoRows) {
		return nil, apperrors.WithMetadata(apperrors.CodeUserNotFound, "user not found",
			map[string]string{"wallet": wallet})
	}
	if err != nil {
		slog.Error("User lookup failed", "wallet", wallet, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to look up user", err)
	}
	return user, nil
}

func (s *SessionService) getSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, repository.ErrNoRows) {
		return nil, apperrors.WithMetadata(apperrors.CodeSessionNotFound, "session not found",
			map[string]string{"session_id": sessionID})
	}
	if err != nil {
		slog.Error("Session lookup failed", "session_id", sessionID, "error", err)
		return nil, apperrors.Wrap(apperrors.CodeStoreFailure, "failed to get session", err)
	}
	return session, nil
}

func (s *SessionService) rollbackSession(ctx context.Context, sessionID string) {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		slog.Error("Session rollback failed", "session_id", sessionID, "error", err)
		return
	}
	slog.Warn("Session rolled back", "session_id", sessionID)
}

func createSessionRow(ctx context.Context, sessions *repository.SessionRepository, session *model.Session) error {
	if err := sessions.Create(ctx, session); err != nil {
		return apperrors.Wrap(apperrors.CodeSessionCreateFailed, "failed to create session", err)
	}
	return nil
}

func addParticipants(ctx context.Context, participants *repository.ParticipantRepository, sessionID string, invites []model.NewParticipant, userIDs []string, now time.Time) error {
	rows := make([]model.Participant, len(invites))
	for i, invite := range invites {
		rows[i] = model.Participant{
			SessionID:  sessionID,
			UserID:     userIDs[i],
			Joined:     invite.Joined,
			TotalSpent: 0,
			LastUpdate: model.NewTimestamp(now),
		}
	}

	if _, err := participants.CreateMany(ctx, rows); err != nil {
		return apperrors.Wrap(apperrors.CodeParticipantsCreateFailed, "failed to add users to session", err)
	}
	return nil
}

func normalizeInvites(invites []model.NewParticipant) ([]model.NewParticipant, error) {
	if len(invites) == 0 {
		return nil, apperrors.New(apperrors.CodeInvalidArgument, "at least one participant is required")
	}

	seen := make(map[string]struct{}, len(invites))
	out := make([]model.NewParticipant, 0, len(invites))
	for _, invite := range invites {
		invite.WalletAddress = strings.TrimSpace(invite.WalletAddress)
		if invite.WalletAddress == "" {
			return nil, apperrors.New(apperrors.CodeInvalidArgument, "participant wallet address is required")
		}
		if _, dup := seen[invite.WalletAddress]; dup {
			return nil, apperrors.WithMetadata(apperrors.CodeInvalidArgument, "duplicate participant wallet address",
				map[string]string{"wallet": invite.WalletAddress})
		}
		seen[invite.WalletAddress] = struct{}{}
		out = append(out, invite)
	}
	return out, nil
}
