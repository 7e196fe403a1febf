package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	_ Store      = (*PostgresStore)(nil)
	_ Transactor = (*PostgresStore)(nil)
)

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore connects straight to the database behind the hosted API.
// Every statement aggregates its rows with json_agg so callers get the same
// JSON shapes PostgREST returns.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    querier
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{pool: pool, q: pool}, nil
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// WithinTx runs fn against a store bound to a single transaction.
// Nested calls reuse the outer transaction.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if s.pool == nil {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&PostgresStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, rows any) ([]byte, error) {
	records, err := toRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	if len(records) == 0 {
		return []byte("[]"), nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rows for %s: %w", table, err)
	}

	query := buildInsert(table, recordKeys(records))
	data, err := s.queryJSON(ctx, query, string(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return data, nil
}

func (s *PostgresStore) SelectOne(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error) {
	data, err := s.SelectMany(ctx, table, columns, filters...)
	if err != nil {
		return nil, err
	}
	return singleRow(data)
}

func (s *PostgresStore) SelectMany(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error) {
	cols, err := parseColumns(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}

	query, args := buildSelect(table, cols, filters)
	data, err := s.queryJSON(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}
	return data, nil
}

func (s *PostgresStore) Update(ctx context.Context, table string, patch any, filters ...Filter) ([]byte, error) {
	if err := requireFilters(filters); err != nil {
		return nil, err
	}
	records, err := toRecords(patch)
	if err != nil || len(records) != 1 {
		return nil, fmt.Errorf("failed to update %s: patch must be a single object", table)
	}
	payload, err := json.Marshal(records[0])
	if err != nil {
		return nil, fmt.Errorf("failed to encode patch for %s: %w", table, err)
	}

	query, args := buildUpdate(table, recordKeys(records), filters)
	data, err := s.queryJSON(ctx, query, append([]any{string(payload)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return data, nil
}

func (s *PostgresStore) Delete(ctx context.Context, table string, filters ...Filter) error {
	if err := requireFilters(filters); err != nil {
		return err
	}

	where, args := buildWhere("t0", filters, 1)
	query := fmt.Sprintf("DELETE FROM %s AS t0 WHERE %s", quoteIdent(table), where)
	if _, err := s.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

func (s *PostgresStore) queryJSON(ctx context.Context, query string, args ...any) ([]byte, error) {
	var out string
	if err := s.q.QueryRow(ctx, query, args...).Scan(&out); err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func buildSelect(table string, cols []column, filters []Filter) (string, []any) {
	where, args := buildWhere("t0", filters, 1)
	inner := fmt.Sprintf("SELECT %s FROM %s AS t0", buildProjection(cols, 0), quoteIdent(table))
	if where != "" {
		inner += " WHERE " + where
	}
	return fmt.Sprintf("SELECT coalesce(json_agg(r), '[]'::json)::text FROM (%s) r", inner), args
}

func buildProjection(cols []column, depth int) string {
	alias := fmt.Sprintf("t%d", depth)
	parts := make([]string, 0, len(cols))
	for _, c := range cols {
		switch {
		case c.name == "*":
			parts = append(parts, alias+".*")
		case c.isEmbed():
			child := fmt.Sprintf("t%d", depth+1)
			parts = append(parts, fmt.Sprintf(
				"(SELECT row_to_json(e%d) FROM (SELECT %s FROM %s AS %s WHERE %s.\"id\" = %s.%s) e%d) AS %s",
				depth+1,
				buildProjection(c.embed, depth+1),
				quoteIdent(c.name), child,
				child, alias, quoteIdent(c.foreignKey()),
				depth+1,
				quoteIdent(c.name),
			))
		default:
			parts = append(parts, alias+"."+quoteIdent(c.name))
		}
	}
	return strings.Join(parts, ", ")
}

func buildInsert(table string, keys []string) string {
	cols := quoteAll(keys)
	return fmt.Sprintf(
		"WITH ins AS (INSERT INTO %s (%s) SELECT %s FROM json_populate_recordset(NULL::%s, $1::json) RETURNING *) "+
			"SELECT coalesce(json_agg(ins), '[]'::json)::text FROM ins",
		quoteIdent(table), cols, cols, quoteIdent(table),
	)
}

func buildUpdate(table string, keys []string, filters []Filter) (string, []any) {
	sets := make([]string, 0, len(keys))
	for _, k := range keys {
		sets = append(sets, fmt.Sprintf("%s = p.%s", quoteIdent(k), quoteIdent(k)))
	}
	where, args := buildWhere("t0", filters, 2)
	return fmt.Sprintf(
		"WITH upd AS (UPDATE %s AS t0 SET %s FROM json_populate_record(NULL::%s, $1::json) AS p WHERE %s RETURNING t0.*) "+
			"SELECT coalesce(json_agg(upd), '[]'::json)::text FROM upd",
		quoteIdent(table), strings.Join(sets, ", "), quoteIdent(table), where,
	), args
}

// buildWhere compares columns as text so filters work for uuid, bool and numeric columns alike.
func buildWhere(alias string, filters []Filter, firstArg int) (string, []any) {
	conds := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		conds = append(conds, fmt.Sprintf("%s.%s::text = $%d", alias, quoteIdent(f.Column), firstArg+i))
		args = append(args, f.Value)
	}
	return strings.Join(conds, " AND "), args
}

func recordKeys(records []map[string]any) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for k := range rec {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func quoteIdent(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
