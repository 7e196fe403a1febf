package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

const (
	participantsTable = "sessions_users"

	participantColumns = "session_id, user_id, joined, total_spent, last_update"
	withSessionColumns = participantColumns + ", sessions(*)"
	withUserColumns    = participantColumns + ", users(id, name, walletAddress)"
)

// ParticipantRepository owns writes to the sessions_users join table.
type ParticipantRepository struct {
	store Store
}

func NewParticipantRepository(store Store) *ParticipantRepository {
	return &ParticipantRepository{store: store}
}

// CreateMany bulk-inserts participation rows in one request.
func (r *ParticipantRepository) CreateMany(ctx context.Context, participants []model.Participant) ([]model.Participant, error) {
	data, err := r.store.Insert(ctx, participantsTable, participants)
	if err != nil {
		return nil, fmt.Errorf("failed to add participants: %w", err)
	}
	created, err := decodeRows[model.Participant](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse participants: %w", err)
	}
	if len(created) == 0 {
		return nil, ErrEmptyResult
	}
	return created, nil
}

func (r *ParticipantRepository) Create(ctx context.Context, participant model.Participant) (*model.Participant, error) {
	created, err := r.CreateMany(ctx, []model.Participant{participant})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

// Find returns ErrNoRows when the user has no row for the session.
func (r *ParticipantRepository) Find(ctx context.Context, sessionID, userID string) (*model.Participant, error) {
	data, err := r.store.SelectOne(ctx, participantsTable, participantColumns,
		Eq("session_id", sessionID),
		Eq("user_id", userID),
	)
	if err != nil {
		return nil, err
	}
	return decodeRow[model.Participant](data)
}

func (r *ParticipantRepository) MarkJoined(ctx context.Context, sessionID, userID string, at time.Time) (*model.Participant, error) {
	patch := map[string]any{
		"joined":      true,
		"last_update": model.NewTimestamp(at),
	}
	data, err := r.store.Update(ctx, participantsTable, patch,
		Eq("session_id", sessionID),
		Eq("user_id", userID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark participant joined: %w", err)
	}
	updated, err := decodeRows[model.Participant](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse participant: %w", err)
	}
	if len(updated) == 0 {
		return nil, ErrEmptyResult
	}
	return &updated[0], nil
}

// ListByUser returns the user's participation rows with their sessions embedded.
func (r *ParticipantRepository) ListByUser(ctx context.Context, userID string) ([]model.Participant, error) {
	data, err := r.store.SelectMany(ctx, participantsTable, withSessionColumns, Eq("user_id", userID))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions for user: %w", err)
	}
	return decodeRows[model.Participant](data)
}

// ListBySession returns the session's participation rows with user identity embedded.
func (r *ParticipantRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Participant, error) {
	data, err := r.store.SelectMany(ctx, participantsTable, withUserColumns, Eq("session_id", sessionID))
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return decodeRows[model.Participant](data)
}
