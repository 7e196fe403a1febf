package repository

import "testing"

func TestParseColumns(t *testing.T) {
	cols, err := parseColumns("session_id, joined, sessions(*), users(id, name, walletAddress)")
	if err != nil {
		t.Fatalf("parseColumns failed: %v", err)
	}
	if len(cols) != 4 {
		t.Fatalf("expected 4 columns, got %d", len(cols))
	}
	if cols[0].name != "session_id" || cols[0].isEmbed() {
		t.Errorf("unexpected first column %+v", cols[0])
	}

	sessions := cols[2]
	if !sessions.isEmbed() || sessions.name != "sessions" {
		t.Fatalf("expected sessions embed, got %+v", sessions)
	}
	if sessions.foreignKey() != "session_id" {
		t.Errorf("expected foreign key session_id, got %s", sessions.foreignKey())
	}
	if len(sessions.embed) != 1 || sessions.embed[0].name != "*" {
		t.Errorf("expected star projection, got %+v", sessions.embed)
	}

	users := cols[3]
	if users.foreignKey() != "user_id" || len(users.embed) != 3 {
		t.Errorf("unexpected users embed %+v", users)
	}
}

func TestParseColumnsDefaultsToStar(t *testing.T) {
	cols, err := parseColumns("  ")
	if err != nil {
		t.Fatalf("parseColumns failed: %v", err)
	}
	if len(cols) != 1 || cols[0].name != "*" {
		t.Fatalf("expected star, got %+v", cols)
	}
}

func TestParseColumnsRejectsMalformed(t *testing.T) {
	for _, input := range []string{
		"sessions(*",
		"sessions*)",
		"id; drop table users",
		"(id)",
		"a,,b",
	} {
		if _, err := parseColumns(input); err == nil {
			t.Errorf("expected error for %q", input)
		}
	}
}
