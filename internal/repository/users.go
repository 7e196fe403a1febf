package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

const usersTable = "users"

// UserRepository resolves wallet addresses to users.
type UserRepository struct {
	store Store
}

func NewUserRepository(store Store) *UserRepository {
	return &UserRepository{store: store}
}

// FindByWallet returns ErrNoRows when no user has the address.
func (r *UserRepository) FindByWallet(ctx context.Context, wallet string) (*model.User, error) {
	data, err := r.store.SelectOne(ctx, usersTable, "id, name, walletAddress", Eq("walletAddress", wallet))
	if err != nil {
		return nil, err
	}
	return decodeRow[model.User](data)
}

// FindOrCreate returns the user for wallet, creating an unnamed one if needed.
func (r *UserRepository) FindOrCreate(ctx context.Context, wallet string) (*model.User, error) {
	user, err := r.FindByWallet(ctx, wallet)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNoRows) {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	data, err := r.store.Insert(ctx, usersTable, model.User{WalletAddress: wallet})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	created, err := decodeRows[model.User](data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created user: %w", err)
	}
	if len(created) == 0 {
		return nil, ErrEmptyResult
	}
	return &created[0], nil
}
