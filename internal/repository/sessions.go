package repository

import (
	"context"
	"fmt"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

const sessionsTable = "sessions"

// SessionRepository owns writes to the sessions table.
type SessionRepository struct {
	store Store
}

func NewSessionRepository(store Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// Create inserts session and fills in the fields the store assigned.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	row := *session
	row.ID = ""

	data, err := r.store.Insert(ctx, sessionsTable, row)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	created, err := decodeRows[model.Session](data)
	if err != nil {
		return fmt.Errorf("failed to parse created session: %w", err)
	}
	if len(created) == 0 {
		return ErrEmptyResult
	}
	*session = created[0]
	return nil
}

// Get returns ErrNoRows when the session does not exist.
func (r *SessionRepository) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := r.store.SelectOne(ctx, sessionsTable, "*", Eq("id", id))
	if err != nil {
		return nil, err
	}
	return decodeRow[model.Session](data)
}

func (r *SessionRepository) UpdateState(ctx context.Context, id string, state model.SessionState) (*model.Session, error) {
	data, err := r.store.Update(ctx, sessionsTable, map[string]any{"state": state}, Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("failed to update session state: %w", err)
	}
	updated, err := decodeRows[model.Session](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated session: %w", err)
	}
	if len(updated) == 0 {
		return nil, ErrEmptyResult
	}
	return &updated[0], nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, sessionsTable, Eq("id", id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
