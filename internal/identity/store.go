package identity

import (
	"context"
	"errors"
	"sync"
)

var ErrEmptySession = errors.New("session id is required")

// Store remembers who the local user is in each session so a restart rejoins
// the same seat. It is a plain local cache; nothing is validated.
type Store interface {
	Resolve(ctx context.Context, sessionID string) (playerID string, ok bool, err error)
	Persist(ctx context.Context, sessionID, playerID string) error
	Clear(ctx context.Context, sessionID string) error

	// The creator credential is handed out once by create-session. It stays
	// stored until a join using it succeeds.
	PersistCredential(ctx context.Context, sessionID, token string) error
	Credential(ctx context.Context, sessionID string) (token string, ok bool, err error)
	ClearCredential(ctx context.Context, sessionID string) error

	Close() error
}

func PlayerKey(sessionID string) string     { return "playerId_" + sessionID }
func CredentialKey(sessionID string) string { return "creatorToken_" + sessionID }

type MemoryStore struct {
	mu   sync.Mutex
	vals map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{vals: make(map[string]string)}
}

func (m *MemoryStore) Resolve(_ context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[PlayerKey(sessionID)]
	return v, ok, nil
}

func (m *MemoryStore) Persist(_ context.Context, sessionID, playerID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[PlayerKey(sessionID)] = playerID
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, PlayerKey(sessionID))
	return nil
}

func (m *MemoryStore) PersistCredential(_ context.Context, sessionID, token string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals[CredentialKey(sessionID)] = token
	return nil
}

func (m *MemoryStore) Credential(_ context.Context, sessionID string) (string, bool, error) {
	if sessionID == "" {
		return "", false, ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.vals[CredentialKey(sessionID)]
	return v, ok, nil
}

func (m *MemoryStore) ClearCredential(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrEmptySession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vals, CredentialKey(sessionID))
	return nil
}

func (m *MemoryStore) Close() error { return nil }
