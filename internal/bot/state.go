package bot

import (
	"sync"
	"time"

	"github.com/ivanoskov/wallet_sessions/internal/model"
)

// stateStore keeps per-user bot state in memory. A webhook deployment starts
// from an empty store on every invocation.
type stateStore struct {
	mu     sync.Mutex
	states map[int64]*model.UserState
	now    func() time.Time
}

func newStateStore() *stateStore {
	return &stateStore{
		states: make(map[int64]*model.UserState),
		now:    time.Now,
	}
}

// get returns a copy of the user's state.
func (s *stateStore) get(userID int64) model.UserState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if state, ok := s.states[userID]; ok {
		return *state
	}
	return model.UserState{UserID: userID}
}

func (s *stateStore) update(userID int64, fn func(state *model.UserState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, ok := s.states[userID]
	if !ok {
		state = &model.UserState{UserID: userID}
		s.states[userID] = state
	}
	fn(state)
	state.UpdatedAt = s.now()
}

func (s *stateStore) setWallet(userID int64, wallet string) {
	s.update(userID, func(state *model.UserState) {
		state.WalletAddress = wallet
		state.AwaitingAction = model.AwaitingNothing
	})
}

func (s *stateStore) await(userID int64, action string) {
	s.update(userID, func(state *model.UserState) {
		state.AwaitingAction = action
	})
}
