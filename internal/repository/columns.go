package repository

import (
	"fmt"
	"strings"
)

// column is one entry of a select list: a plain column, "*", or an embedded
// many-to-one relation such as users(id, name).
type column struct {
	name  string
	embed []column
}

func (c column) isEmbed() bool {
	return c.embed != nil
}

// foreignKey is the referencing column for an embedded table: sessions -> session_id.
func (c column) foreignKey() string {
	return strings.TrimSuffix(c.name, "s") + "_id"
}

func parseColumns(s string) ([]column, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []column{{name: "*"}}, nil
	}

	parts, err := splitTopLevel(s)
	if err != nil {
		return nil, err
	}

	cols := make([]column, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		open := strings.IndexByte(part, '(')
		if open < 0 {
			if !validIdent(part) {
				return nil, fmt.Errorf("invalid column %q", part)
			}
			cols = append(cols, column{name: part})
			continue
		}

		if !strings.HasSuffix(part, ")") {
			return nil, fmt.Errorf("invalid embed %q", part)
		}
		name := strings.TrimSpace(part[:open])
		if name == "*" || !validIdent(name) {
			return nil, fmt.Errorf("invalid embed name %q", name)
		}
		inner, err := parseColumns(part[open+1 : len(part)-1])
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", name, err)
		}
		cols = append(cols, column{name: name, embed: inner})
	}
	return cols, nil
}

func splitTopLevel(s string) ([]string, error) {
	var parts []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced parentheses in %q", s)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced parentheses in %q", s)
	}
	return append(parts, s[start:]), nil
}

func validIdent(s string) bool {
	if s == "*" {
		return true
	}
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '_' && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
