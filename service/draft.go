package service

import (
	"sync"

	"diceduel/models"

	"github.com/shopspring/decimal"
)

// Draft is the in-progress challenge a user is configuring through the
// wizard. It is transient: never persisted, discarded on send, cancel, or
// replacement by a new draft.
type Draft struct {
	UserID           int64
	OpponentID       int64
	OpponentUsername string
	Type             models.GameType
	Bet              decimal.Decimal
	RoundsToWin      int
}

// DraftUpdate carries one wizard selection. Nil fields are left untouched.
type DraftUpdate struct {
	Type        *models.GameType
	Bet         *decimal.Decimal
	RoundsToWin *int
}

// draftStore holds per-user challenge drafts, keyed by the challenger's id.
// Owned by the game service instance; lost on restart by design of the wizard.
type draftStore struct {
	mu     sync.Mutex
	drafts map[int64]*Draft
}

func newDraftStore() *draftStore {
	return &draftStore{drafts: make(map[int64]*Draft)}
}

// put replaces any existing draft for the user
func (s *draftStore) put(draft *Draft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draft.UserID] = draft
}

func (s *draftStore) get(userID int64) *Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drafts[userID]
}

func (s *draftStore) delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, userID)
}

// rematchVotes tracks which participants of a finished duel asked for a
// rematch, keyed by duel id. Cleared as soon as the second distinct vote
// lands.
type rematchVotes struct {
	mu    sync.Mutex
	votes map[int64]map[int64]struct{}
}

func newRematchVotes() *rematchVotes {
	return &rematchVotes{votes: make(map[int64]map[int64]struct{})}
}

// add records a vote and reports whether both distinct participants have now
// voted. A repeated vote by the same participant never completes the set.
func (v *rematchVotes) add(gameID, userID int64) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	set, ok := v.votes[gameID]
	if !ok {
		set = make(map[int64]struct{})
		v.votes[gameID] = set
	}
	set[userID] = struct{}{}

	return len(set) >= 2
}

func (v *rematchVotes) clear(gameID int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.votes, gameID)
}
