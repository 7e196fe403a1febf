package repository

import (
	"context"
	"fmt"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

const expensesTable = "expenses"

// ExpenseRepository reads the expenses table. This service never writes to it.
type ExpenseRepository struct {
	store Store
}

func NewExpenseRepository(store Store) *ExpenseRepository {
	return &ExpenseRepository{store: store}
}

func (r *ExpenseRepository) ListBySession(ctx context.Context, sessionID string) ([]model.Expense, error) {
	data, err := r.store.SelectMany(ctx, expensesTable, "id, session_id, user_id, amount, description, date",
		Eq("session_id", sessionID),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get expenses: %w", err)
	}
	return decodeRows[model.Expense](data)
}
