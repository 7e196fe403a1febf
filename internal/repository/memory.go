package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps tables in process. It mirrors the PostgREST behaviour the
// service relies on: generated ids, equality filters, projections and
// many-to-one embeds resolved through <table minus s>_id columns.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string][]map[string]any)}
}

// Seed inserts rows directly, for tables this service only reads.
func (m *MemoryStore) Seed(table string, rows ...any) error {
	_, err := m.Insert(context.Background(), table, rows)
	return err
}

// Count returns the number of rows in table matching filters.
func (m *MemoryStore) Count(table string, filters ...Filter) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, row := range m.tables[table] {
		if matches(row, filters) {
			n++
		}
	}
	return n
}

func (m *MemoryStore) Insert(ctx context.Context, table string, rows any) ([]byte, error) {
	records, err := toRecords(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		if id, ok := rec["id"]; !ok || id == nil || id == "" {
			rec["id"] = uuid.New().String()
		}
		m.tables[table] = append(m.tables[table], rec)
		inserted = append(inserted, copyRecord(rec))
	}
	return json.Marshal(inserted)
}

func (m *MemoryStore) SelectOne(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error) {
	data, err := m.SelectMany(ctx, table, columns, filters...)
	if err != nil {
		return nil, err
	}
	return singleRow(data)
}

func (m *MemoryStore) SelectMany(ctx context.Context, table, columns string, filters ...Filter) ([]byte, error) {
	cols, err := parseColumns(columns)
	if err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", table, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]map[string]any, 0)
	for _, row := range m.tables[table] {
		if matches(row, filters) {
			out = append(out, m.project(row, cols))
		}
	}
	return json.Marshal(out)
}

func (m *MemoryStore) Update(ctx context.Context, table string, patch any, filters ...Filter) ([]byte, error) {
	if err := requireFilters(filters); err != nil {
		return nil, err
	}
	records, err := toRecords(patch)
	if err != nil || len(records) != 1 {
		return nil, fmt.Errorf("failed to update %s: patch must be a single object", table)
	}
	changes := records[0]

	m.mu.Lock()
	defer m.mu.Unlock()

	updated := make([]map[string]any, 0)
	for _, row := range m.tables[table] {
		if !matches(row, filters) {
			continue
		}
		for k, v := range changes {
			row[k] = v
		}
		updated = append(updated, copyRecord(row))
	}
	return json.Marshal(updated)
}

func (m *MemoryStore) Delete(ctx context.Context, table string, filters ...Filter) error {
	if err := requireFilters(filters); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.tables[table][:0]
	for _, row := range m.tables[table] {
		if !matches(row, filters) {
			kept = append(kept, row)
		}
	}
	m.tables[table] = kept
	return nil
}

func (m *MemoryStore) project(row map[string]any, cols []column) map[string]any {
	out := make(map[string]any)
	for _, c := range cols {
		switch {
		case c.name == "*":
			for k, v := range row {
				out[k] = v
			}
		case c.isEmbed():
			out[c.name] = m.embed(c, row[c.foreignKey()])
		default:
			if v, ok := row[c.name]; ok {
				out[c.name] = v
			} else {
				out[c.name] = nil
			}
		}
	}
	return out
}

func (m *MemoryStore) embed(c column, ref any) any {
	if ref == nil {
		return nil
	}
	for _, target := range m.tables[c.name] {
		if valueString(target["id"]) == valueString(ref) {
			return m.project(target, c.embed)
		}
	}
	return nil
}

func matches(row map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok || valueString(v) != f.Value {
			return false
		}
	}
	return true
}

// valueString renders a decoded JSON value the way it appears in a query string.
func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}

// toRecords normalises a struct, map, or slice of either into JSON objects.
func toRecords(v any) ([]map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	var many []map[string]any
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one map[string]any
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("rows must be objects: %w", err)
	}
	return []map[string]any{one}, nil
}

func copyRecord(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
