package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNoRows is returned by SelectOne when no row matches.
	ErrNoRows = errors.New("no rows in result set")
	// ErrMultipleRows is returned by SelectOne when more than one row matches.
	ErrMultipleRows = errors.New("multiple rows in result set")
	// ErrEmptyResult is returned when a write came back without rows.
	ErrEmptyResult = errors.New("write returned no rows")
	// ErrUnfiltered guards updates and deletes that would touch a whole table.
	ErrUnfiltered = errors.New("update and delete require at least one filter")
)

// Filter is an equality condition on one column.
type Filter struct {
	Column string
	Value  string
}

// Eq builds an equality filter.
func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Store is a table-oriented client for the remote relational store.
// Rows travel as JSON: writes return the affected rows as a JSON array,
// SelectOne returns a single JSON object.
//
// Columns use the PostgREST select syntax, including many-to-one embeds:
// "session_id, sessions(*)" embeds the sessions row referenced by session_id.
type Store interface {
	Insert(ctx context.Context, table string, rows any) ([]byte, error)
	SelectOne(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error)
	SelectMany(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error)
	Update(ctx context.Context, table string, patch any, filters ...Filter) ([]byte, error)
	Delete(ctx context.Context, table string, filters ...Filter) error
}

// Transactor is implemented by stores that can run several calls atomically.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// singleRow extracts exactly one row from a JSON array.
func singleRow(data []byte) ([]byte, error) {
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}
	switch len(rows) {
	case 0:
		return nil, ErrNoRows
	case 1:
		return rows[0], nil
	default:
		return nil, ErrMultipleRows
	}
}

func decodeRows[T any](data []byte) ([]T, error) {
	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows: %w", err)
	}
	return rows, nil
}

func decodeRow[T any](data []byte) (*T, error) {
	var row T
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to parse row: %w", err)
	}
	return &row, nil
}

func requireFilters(filters []Filter) error {
	if len(filters) == 0 {
		return ErrUnfiltered
	}
	return nil
}
