package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/ivanoskov/wallet_sessions/internal/errors"
	"github.com/ivanoskov/wallet_sessions/internal/model"
	"github.com/ivanoskov/wallet_sessions/internal/repository"
)

var testNow = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*SessionService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewSessionService(store, WithClock(func() time.Time { return testNow })), store
}

// failingStore fails writes to selected tables.
type failingStore struct {
	repository.Store
	failInsert map[string]error
	failUpdate map[string]error
}

func (s *failingStore) Insert(ctx context.Context, table string, rows any) ([]byte, error) {
	if err := s.failInsert[table]; err != nil {
		return nil, err
	}
	return s.Store.Insert(ctx, table, rows)
}

func (s *failingStore) Update(ctx context.Context, table string, patch any, filters ...repository.Filter) ([]byte, error) {
	if err := s.failUpdate[table]; err != nil {
		return nil, err
	}
	return s.Store.Update(ctx, table, patch, filters...)
}

type txStore struct {
	repository.Store
	calls int
}

func (s *txStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	s.calls++
	return fn(s.Store)
}

// cannedStore answers SelectMany on selected tables with fixed rows.
type cannedStore struct {
	repository.Store
	rows map[string][]byte
}

func (s *cannedStore) SelectMany(ctx context.Context, table, columns string, filters ...repository.Filter) ([]byte, error) {
	if data, ok := s.rows[table]; ok {
		return data, nil
	}
	return s.Store.SelectMany(ctx, table, columns, filters...)
}

type brokenResolver struct{}

func (brokenResolver) FindByWallet(ctx context.Context, wallet string) (*model.User, error) {
	return nil, errors.New("resolver down")
}

func (brokenResolver) FindOrCreate(ctx context.Context, wallet string) (*model.User, error) {
	return nil, errors.New("resolver down")
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", want)
	}
	if got := apperrors.CodeOf(err); got != want {
		t.Fatalf("expected code %s, got %s (%v)", want, got, err)
	}
}

func createTestSession(t *testing.T, svc *SessionService, invites ...model.NewParticipant) *model.Session {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip"}, invites)
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func TestCreateSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	session, err := svc.CreateSession(ctx, model.Session{Name: "Trip", Description: "Lisbon"}, []model.NewParticipant{
		{WalletAddress: "0xA", Joined: true},
		{WalletAddress: " 0xB "},
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if session.ID == "" {
		t.Error("expected session id to be assigned")
	}
	if session.State != model.SessionPending {
		t.Errorf("expected state %s, got %s", model.SessionPending, session.State)
	}
	if session.CreatedAt == nil || !session.CreatedAt.Equal(testNow) {
		t.Errorf("expected created_at %v, got %v", testNow, session.CreatedAt)
	}
	if got := store.Count("sessions_users", repository.Eq("session_id", session.ID)); got != 2 {
		t.Errorf("expected 2 participation rows, got %d", got)
	}
	if got := store.Count("sessions_users", repository.Eq("session_id", session.ID), repository.Eq("total_spent", "0")); got != 2 {
		t.Errorf("expected 2 participation rows with total_spent 0, got %d", got)
	}
	if got := store.Count("sessions_users", repository.Eq("session_id", session.ID), repository.Eq("joined", "true")); got != 1 {
		t.Errorf("expected 1 joined participant, got %d", got)
	}
	if got := store.Count("users", repository.Eq("walletAddress", "0xB")); got != 1 {
		t.Errorf("expected trimmed wallet to be stored once, got %d", got)
	}
}

func TestCreateSession_KeepsExplicitState(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip", State: model.SessionActive},
		[]model.NewParticipant{{WalletAddress: "0xA"}})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.State != model.SessionActive {
		t.Errorf("expected state %s, got %s", model.SessionActive, session.State)
	}
}

func TestCreateSession_ReusesExistingUsers(t *testing.T) {
	svc, store := newTestService(t)
	if err := store.Seed("users", model.User{ID: "u1", Name: "Alice", WalletAddress: "0xA"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	session := createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xA"})

	if got := store.Count("users"); got != 1 {
		t.Errorf("expected no new users, got %d rows", got)
	}
	if got := store.Count("sessions_users", repository.Eq("session_id", session.ID), repository.Eq("user_id", "u1")); got != 1 {
		t.Errorf("expected participation for existing user, got %d", got)
	}
}

func TestCreateSession_InvalidParticipants(t *testing.T) {
	tests := []struct {
		name    string
		invites []model.NewParticipant
	}{
		{name: "no participants", invites: nil},
		{name: "empty wallet", invites: []model.NewParticipant{{WalletAddress: "  "}}},
		{name: "duplicate wallet", invites: []model.NewParticipant{{WalletAddress: "0xA"}, {WalletAddress: "0xA"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t)
			_, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip"}, tt.invites)
			assertCode(t, err, apperrors.CodeInvalidArgument)
			if got := store.Count("sessions"); got != 0 {
				t.Errorf("expected no sessions, got %d", got)
			}
		})
	}
}

func TestCreateSession_RollsBackOnParticipantFailure(t *testing.T) {
	mem := repository.NewMemoryStore()
	store := &failingStore{Store: mem, failInsert: map[string]error{"sessions_users": errors.New("insert rejected")}}
	svc := NewSessionService(store)

	_, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip"},
		[]model.NewParticipant{{WalletAddress: "0xA"}})

	assertCode(t, err, apperrors.CodeParticipantsCreateFailed)
	if got := mem.Count("sessions"); got != 0 {
		t.Errorf("expected session to be rolled back, got %d rows", got)
	}
}

func TestCreateSession_SessionInsertFailure(t *testing.T) {
	mem := repository.NewMemoryStore()
	store := &failingStore{Store: mem, failInsert: map[string]error{"sessions": errors.New("insert rejected")}}
	svc := NewSessionService(store)

	_, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip"},
		[]model.NewParticipant{{WalletAddress: "0xA"}})

	assertCode(t, err, apperrors.CodeSessionCreateFailed)
	if got := mem.Count("sessions_users"); got != 0 {
		t.Errorf("expected no participation rows, got %d", got)
	}
}

func TestCreateSession_ResolverFailureLeavesNoSession(t *testing.T) {
	mem := repository.NewMemoryStore()
	svc := NewSessionService(mem, WithUserResolver(brokenResolver{}))

	_, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip"},
		[]model.NewParticipant{{WalletAddress: "0xA"}})

	assertCode(t, err, apperrors.CodeStoreFailure)
	if got := mem.Count("sessions"); got != 0 {
		t.Errorf("expected no sessions, got %d", got)
	}
}

func TestCreateSession_UsesTransactionWhenAvailable(t *testing.T) {
	mem := repository.NewMemoryStore()
	store := &txStore{Store: mem}
	svc := NewSessionService(store)

	session, err := svc.CreateSession(context.Background(), model.Session{Name: "Trip"},
		[]model.NewParticipant{{WalletAddress: "0xA"}, {WalletAddress: "0xB"}})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if store.calls != 1 {
		t.Errorf("expected one transaction, got %d", store.calls)
	}
	if got := mem.Count("sessions_users", repository.Eq("session_id", session.ID)); got != 2 {
		t.Errorf("expected 2 participation rows, got %d", got)
	}
}

func TestListSessionsByWallet(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)

	first := createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xA", Joined: true}, model.NewParticipant{WalletAddress: "0xB"})
	second := createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xA"})
	createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xB"})

	t.Run("returns sessions with join flag", func(t *testing.T) {
		summaries, err := svc.ListSessionsByWallet(ctx, "0xA")
		if err != nil {
			t.Fatalf("ListSessionsByWallet failed: %v", err)
		}
		if len(summaries) != 2 {
			t.Fatalf("expected 2 sessions, got %d", len(summaries))
		}
		joined := map[string]bool{}
		for _, s := range summaries {
			joined[s.ID] = s.IsJoined
			if s.Name != "Trip" {
				t.Errorf("expected session name Trip, got %q", s.Name)
			}
		}
		if !joined[first.ID] {
			t.Errorf("expected session %s to be joined", first.ID)
		}
		if joined[second.ID] {
			t.Errorf("expected session %s to be pending", second.ID)
		}
	})

	t.Run("skips rows without a session", func(t *testing.T) {
		user, err := repository.NewUserRepository(store).FindByWallet(ctx, "0xA")
		if err != nil {
			t.Fatalf("FindByWallet failed: %v", err)
		}
		if err := store.Seed("sessions_users", model.Participant{SessionID: "gone", UserID: user.ID}); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}

		summaries, err := svc.ListSessionsByWallet(ctx, "0xA")
		if err != nil {
			t.Fatalf("ListSessionsByWallet failed: %v", err)
		}
		if len(summaries) != 2 {
			t.Errorf("expected dangling row to be skipped, got %d sessions", len(summaries))
		}
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := svc.ListSessionsByWallet(ctx, "0xUnknown")
		assertCode(t, err, apperrors.CodeUserNotFound)
	})

	t.Run("known wallet without sessions", func(t *testing.T) {
		if err := store.Seed("users", model.User{WalletAddress: "0xLonely"}); err != nil {
			t.Fatalf("Seed failed: %v", err)
		}
		summaries, err := svc.ListSessionsByWallet(ctx, "0xLonely")
		if err != nil {
			t.Fatalf("ListSessionsByWallet failed: %v", err)
		}
		if len(summaries) != 0 {
			t.Errorf("expected no sessions, got %d", len(summaries))
		}
	})
}

func TestListSessionsByWallet_UsesParticipationSessionID(t *testing.T) {
	memory := repository.NewMemoryStore()
	if err := memory.Seed("users", model.User{ID: "u1", WalletAddress: "0xA"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	store := &cannedStore{Store: memory, rows: map[string][]byte{
		"sessions_users": []byte(`[
			{"session_id": "s1", "user_id": "u1", "joined": true, "sessions": {"name": "Trip", "state": "Pending"}},
			{"session_id": "s2", "user_id": "u1", "joined": false, "sessions": {"id": "stale", "name": "Dinner", "state": "Pending"}}
		]`),
	}}
	svc := NewSessionService(store)

	summaries, err := svc.ListSessionsByWallet(context.Background(), "0xA")
	if err != nil {
		t.Fatalf("ListSessionsByWallet failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(summaries))
	}
	for i, want := range []string{"s1", "s2"} {
		if summaries[i].ID != want {
			t.Errorf("summary[%d].ID = %q, want %q", i, summaries[i].ID, want)
		}
	}
	if summaries[1].Name != "Dinner" || summaries[1].IsJoined {
		t.Errorf("unexpected summary %+v", summaries[1])
	}
}

func TestJoinSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	if err := store.Seed("users", model.User{WalletAddress: "0xC"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	session := createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xA"}, model.NewParticipant{WalletAddress: "0xB"})

	t.Run("invited participant joins", func(t *testing.T) {
		participant, err := svc.JoinSession(ctx, session.ID, "0xA")
		if err != nil {
			t.Fatalf("JoinSession failed: %v", err)
		}
		if !participant.Joined {
			t.Error("expected participant to be joined")
		}
		if participant.LastUpdate == nil || !participant.LastUpdate.Equal(testNow) {
			t.Errorf("expected last_update %v, got %v", testNow, participant.LastUpdate)
		}
	})

	t.Run("joining twice conflicts", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, session.ID, "0xA")
		assertCode(t, err, apperrors.CodeParticipantAlreadyJoined)
	})

	t.Run("uninvited user is added", func(t *testing.T) {
		participant, err := svc.JoinSession(ctx, session.ID, "0xC")
		if err != nil {
			t.Fatalf("JoinSession failed: %v", err)
		}
		if !participant.Joined || participant.TotalSpent != 0 {
			t.Errorf("unexpected participant %+v", participant)
		}
		if got := store.Count("sessions_users", repository.Eq("session_id", session.ID)); got != 3 {
			t.Errorf("expected 3 participation rows, got %d", got)
		}
	})

	t.Run("unknown wallet", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, session.ID, "0xUnknown")
		assertCode(t, err, apperrors.CodeUserNotFound)
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, "missing", "0xA")
		assertCode(t, err, apperrors.CodeSessionNotFound)
	})

	t.Run("empty session id", func(t *testing.T) {
		_, err := svc.JoinSession(ctx, "", "0xA")
		assertCode(t, err, apperrors.CodeInvalidArgument)
	})
}

func TestJoinSession_WriteFailure(t *testing.T) {
	mem := repository.NewMemoryStore()
	setup := NewSessionService(mem)
	session := createTestSession(t, setup, model.NewParticipant{WalletAddress: "0xA"})

	store := &failingStore{Store: mem, failUpdate: map[string]error{"sessions_users": errors.New("update rejected")}}
	svc := NewSessionService(store)

	_, err := svc.JoinSession(context.Background(), session.ID, "0xA")
	assertCode(t, err, apperrors.CodeParticipantWriteFailed)
}

func TestActivateSession(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	if err := store.Seed("users", model.User{WalletAddress: "0xOutsider"}); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	session := createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xA", Joined: true}, model.NewParticipant{WalletAddress: "0xB"})

	t.Run("pending participants block activation", func(t *testing.T) {
		_, err := svc.ActivateSession(ctx, session.ID, "0xA")
		assertCode(t, err, apperrors.CodeSessionNotAllJoined)

		var appErr *apperrors.Error
		if !errors.As(err, &appErr) || appErr.Metadata["pending"] != "1" {
			t.Errorf("expected pending=1 metadata, got %v", err)
		}
	})

	t.Run("outsider cannot activate", func(t *testing.T) {
		_, err := svc.ActivateSession(ctx, session.ID, "0xOutsider")
		assertCode(t, err, apperrors.CodeSessionCallerNotParticipant)
	})

	t.Run("activates once everyone joined", func(t *testing.T) {
		if _, err := svc.JoinSession(ctx, session.ID, "0xB"); err != nil {
			t.Fatalf("JoinSession failed: %v", err)
		}
		activated, err := svc.ActivateSession(ctx, session.ID, "0xB")
		if err != nil {
			t.Fatalf("ActivateSession failed: %v", err)
		}
		if activated.State != model.SessionActive {
			t.Errorf("expected state %s, got %s", model.SessionActive, activated.State)
		}
	})

	t.Run("activating an active session is a no-op", func(t *testing.T) {
		activated, err := svc.ActivateSession(ctx, session.ID, "0xOutsider")
		if err != nil {
			t.Fatalf("ActivateSession failed: %v", err)
		}
		if activated.State != model.SessionActive {
			t.Errorf("expected state %s, got %s", model.SessionActive, activated.State)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.ActivateSession(ctx, "missing", "0xA")
		assertCode(t, err, apperrors.CodeSessionNotFound)
	})

	t.Run("session without participants", func(t *testing.T) {
		empty := &model.Session{Name: "Empty", State: model.SessionPending}
		if err := repository.NewSessionRepository(store).Create(ctx, empty); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		_, err := svc.ActivateSession(ctx, empty.ID, "0xA")
		assertCode(t, err, apperrors.CodeSessionNoParticipants)
	})
}

func TestActivateSession_UpdateFailure(t *testing.T) {
	mem := repository.NewMemoryStore()
	session := createTestSession(t, NewSessionService(mem), model.NewParticipant{WalletAddress: "0xA", Joined: true})

	store := &failingStore{Store: mem, failUpdate: map[string]error{"sessions": errors.New("update rejected")}}
	_, err := NewSessionService(store).ActivateSession(context.Background(), session.ID, "0xA")

	assertCode(t, err, apperrors.CodeSessionUpdateFailed)
}

func TestGetSessionDetails(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestService(t)
	if err := store.Seed("users",
		model.User{ID: "u1", Name: "Alice", WalletAddress: "0xA"},
		model.User{ID: "u2", Name: "Bob", WalletAddress: "0xB"},
	); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	session := createTestSession(t, svc, model.NewParticipant{WalletAddress: "0xA", Joined: true}, model.NewParticipant{WalletAddress: "0xB"})

	if err := store.Seed("expenses",
		model.Expense{ID: "e1", SessionID: session.ID, UserID: "u1", Amount: decimal.RequireFromString("10.10"), Description: "Taxi", Date: model.NewTimestamp(testNow)},
		model.Expense{ID: "e2", SessionID: session.ID, UserID: "u2", Amount: decimal.RequireFromString("5.25"), Description: "Coffee"},
		model.Expense{ID: "e3", SessionID: session.ID, UserID: "u2", Amount: decimal.RequireFromString("4.65"), Description: "Museum", Date: model.NewTimestamp(testNow.Add(26 * time.Hour))},
		model.Expense{ID: "e4", SessionID: "other", UserID: "u2", Amount: decimal.RequireFromString("99")},
	); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	details, err := svc.GetSessionDetails(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSessionDetails failed: %v", err)
	}

	if details.Session.ID != session.ID {
		t.Errorf("expected session %s, got %s", session.ID, details.Session.ID)
	}
	if len(details.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(details.Participants))
	}
	names := map[string]model.ParticipantView{}
	for _, p := range details.Participants {
		names[p.Name] = p
	}
	if alice := names["Alice"]; alice.ID != "u1" || alice.WalletAddress != "0xA" || !alice.Joined {
		t.Errorf("unexpected participant view %+v", alice)
	}
	if bob := names["Bob"]; bob.Joined {
		t.Errorf("expected Bob pending, got %+v", bob)
	}

	if len(details.Expenses) != 3 {
		t.Fatalf("expected 3 expenses, got %d", len(details.Expenses))
	}
	if details.TotalExpenses != 20 {
		t.Errorf("expected total 20, got %v", details.TotalExpenses)
	}
	for _, e := range details.Expenses {
		if e.ID == "e1" && e.Date != "2024-03-01T12:30:00Z" {
			t.Errorf("expected canonical date, got %q", e.Date)
		}
		if e.ID == "e3" && e.Date != "2024-03-02T14:30:00Z" {
			t.Errorf("expected canonical date, got %q", e.Date)
		}
		if e.ID == "e2" && e.Date != "" {
			t.Errorf("expected empty date, got %q", e.Date)
		}
	}

	t.Run("unknown session", func(t *testing.T) {
		_, err := svc.GetSessionDetails(ctx, "missing")
		assertCode(t, err, apperrors.CodeSessionNotFound)
	})
}
