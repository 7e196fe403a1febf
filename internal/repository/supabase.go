package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/supabase-community/supabase-go"
)

var _ Store = (*SupabaseStore)(nil)

// SupabaseStore talks to the hosted database through the PostgREST API.
// The client has no context support, so ctx is not propagated to requests.
type SupabaseStore struct {
	client *supabase.Client
}

func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &SupabaseStore{
		client: client,
	}, nil
}

func (r *SupabaseStore) Insert(ctx context.Context, table string, rows any) ([]byte, error) {
	data, count, err := r.client.From(table).Insert(rows, false, "", "representation", "").Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	slog.Debug("Rows inserted", "table", table, "count", count)
	return data, nil
}

func (r *SupabaseStore) SelectOne(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error) {
	data, err := r.SelectMany(ctx, table, columns, filters...)
	if err != nil {
		return nil, err
	}
	return singleRow(data)
}

func (r *SupabaseStore) SelectMany(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error) {
	if columns == "" {
		columns = "*"
	}
	query := r.client.From(table).Select(columns, "", false)
	for _, f := range filters {
		query = query.Eq(f.Column, f.Value)
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	return data, nil
}

func (r *SupabaseStore) Update(ctx context.Context, table string, patch any, filters ...Filter) ([]byte, error) {
	if err := requireFilters(filters); err != nil {
		return nil, err
	}
	query := r.client.From(table).Update(patch, "representation", "")
	for _, f := range filters {
		query = query.Eq(f.Column, f.Value)
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return data, nil
}

func (r *SupabaseStore) Delete(ctx context.Context, table string, filters ...Filter) error {
	if err := requireFilters(filters); err != nil {
		return err
	}
	query := r.client.From(table).Delete("", "")
	for _, f := range filters {
		query = query.Eq(f.Column, f.Value)
	}

	if _, _, err := query.Execute(); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}
