package registry

import (
	"context"
	"maps"
	"sync"
)

type (
	// Memory is a process-local Registry. The registry-wide lock is held only
	// to look up or create a user entry; the set itself is guarded per user.
	// Entries are never removed, so a caller holding one never writes to a
	// set the registry no longer sees.
	Memory struct {
		mu    sync.Mutex
		users map[string]*userTokens
	}

	userTokens struct {
		mu     sync.Mutex
		tokens TokenSet
	}
)

var _ Registry = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{users: make(map[string]*userTokens)}
}

func (m *Memory) Register(ctx context.Context, userID, token string) error {
	if err := validate(userID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	u := m.user(userID, true)
	u.mu.Lock()
	defer u.mu.Unlock()

	u.tokens[token] = struct{}{}

	return nil
}

func (m *Memory) Tokens(ctx context.Context, userID string) (TokenSet, error) {
	if err := validate(userID); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u := m.user(userID, false)
	if u == nil {
		return TokenSet{}, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	return maps.Clone(u.tokens), nil
}

func (m *Memory) Contains(ctx context.Context, userID, token string) (bool, error) {
	if err := validate(userID); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	u := m.user(userID, false)
	if u == nil {
		return false, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	return u.tokens.Has(token), nil
}

func (m *Memory) Revoke(ctx context.Context, userID, token string) (bool, error) {
	if err := validate(userID); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	u := m.user(userID, false)
	if u == nil {
		return false, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if !u.tokens.Has(token) {
		return false, nil
	}
	delete(u.tokens, token)

	return true, nil
}

func (m *Memory) Clear(ctx context.Context, userID string) error {
	if err := validate(userID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	u := m.user(userID, false)
	if u == nil {
		return nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	clear(u.tokens)

	return nil
}

func (m *Memory) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		u.mu.Lock()
		clear(u.tokens)
		u.mu.Unlock()
	}

	return nil
}

func (m *Memory) user(userID string, create bool) *userTokens {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[userID]
	if !ok && create {
		u = &userTokens{tokens: make(TokenSet)}
		m.users[userID] = u
	}

	return u
}
