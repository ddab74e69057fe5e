package services

import (
	"context"
	"time"

	"traffic-safety-chatbot/models"

	gocache "github.com/patrickmn/go-cache"
)

// ConversationStore is a per-identity bounded ordered log of turns.
// Identity is an opaque key; the store only needs it for equality.
// Implementations evict oldest turns first once the cap is reached.
type ConversationStore interface {
	// Append adds a turn to the identity's log, evicting the oldest turn
	// when the log is at capacity.
	Append(ctx context.Context, identity string, turn models.ConversationTurn) error
	// Recent returns the most recent n turns in arrival order (the context
	// window for the live prompt, independent of the storage cap).
	Recent(ctx context.Context, identity string, n int) ([]models.ConversationTurn, error)
	// History returns the full stored log in arrival order (audit/export).
	History(ctx context.Context, identity string) ([]models.ConversationTurn, error)
	// Clear removes the identity's log entirely. Idempotent.
	Clear(ctx context.Context, identity string) error
}

// MemoryConversationStore keeps logs in an in-process cache with a session
// TTL, so idle conversations expire the way a server-side session would.
type MemoryConversationStore struct {
	cache *gocache.Cache
	cap   int
	locks *keyedMutex
}

// NewMemoryConversationStore creates an in-memory store. cap bounds each
// identity's log; ttl is the idle session lifetime.
func NewMemoryConversationStore(cap int, ttl time.Duration) *MemoryConversationStore {
	if cap <= 0 {
		cap = 20
	}
	return &MemoryConversationStore{
		cache: gocache.New(ttl, 2*ttl),
		cap:   cap,
		locks: newKeyedMutex(),
	}
}

func (s *MemoryConversationStore) Append(ctx context.Context, identity string, turn models.ConversationTurn) error {
	unlock := s.locks.Lock(identity)
	defer unlock()

	turns := s.load(identity)
	turns = append(turns, turn)
	if len(turns) > s.cap {
		turns = turns[len(turns)-s.cap:]
	}

	s.cache.Set(historyKey(identity), turns, gocache.DefaultExpiration)
	return nil
}

func (s *MemoryConversationStore) Recent(ctx context.Context, identity string, n int) ([]models.ConversationTurn, error) {
	unlock := s.locks.Lock(identity)
	defer unlock()

	turns := s.load(identity)
	if n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return cloneTurns(turns), nil
}

func (s *MemoryConversationStore) History(ctx context.Context, identity string) ([]models.ConversationTurn, error) {
	unlock := s.locks.Lock(identity)
	defer unlock()

	return cloneTurns(s.load(identity)), nil
}

func (s *MemoryConversationStore) Clear(ctx context.Context, identity string) error {
	unlock := s.locks.Lock(identity)
	defer unlock()

	s.cache.Delete(historyKey(identity))
	return nil
}

func (s *MemoryConversationStore) load(identity string) []models.ConversationTurn {
	if v, ok := s.cache.Get(historyKey(identity)); ok {
		if turns, ok := v.([]models.ConversationTurn); ok {
			return turns
		}
	}
	return nil
}

func historyKey(identity string) string {
	return "history_" + identity
}

// cloneTurns copies the slice so callers never alias the stored log.
func cloneTurns(turns []models.ConversationTurn) []models.ConversationTurn {
	if len(turns) == 0 {
		return nil
	}
	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	return out
}
