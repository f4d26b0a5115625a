package session

import (
	"context"
	"sync"
)

// State is the conversation state of a chat.
type State int

const (
	StateIdle State = iota
	StateAwaitingBroadcast
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingBroadcast:
		return "awaiting_broadcast"
	default:
		return "unknown"
	}
}

// Store keeps one State per chat. Unknown chats are idle.
type Store interface {
	Get(ctx context.Context, chatID int64) (State, error)
	Set(ctx context.Context, chatID int64, state State) error
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Get(_ context.Context, chatID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[chatID], nil
}

func (m *MemoryStore) Set(_ context.Context, chatID int64, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state == StateIdle {
		delete(m.states, chatID)
		return nil
	}
	m.states[chatID] = state
	return nil
}
