package vault

import (
	"context"
	"sync"

	"github.com/dcastellanos/ahorro-backend/internal/models"
)

// Memory keeps references for the process lifetime only. Default
// backend; methods vanish on restart, which is why the Redis backend
// exists.
type Memory struct {
	mu     sync.RWMutex
	byTok  map[string]models.PaymentReference
	byUser map[int64][]string
}

func NewMemory() *Memory {
	return &Memory{
		byTok:  make(map[string]models.PaymentReference),
		byUser: make(map[int64][]string),
	}
}

func (m *Memory) Register(_ context.Context, in RegisterInput) (models.PaymentReference, error) {
	ref, err := newReference(in)
	if err != nil {
		return models.PaymentReference{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTok[ref.Token] = ref
	m.byUser[ref.UsuarioID] = append(m.byUser[ref.UsuarioID], ref.Token)
	return ref, nil
}

func (m *Memory) Lookup(_ context.Context, token string) (models.PaymentReference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.byTok[token]
	if !ok {
		return models.PaymentReference{}, ErrNotFound
	}
	return ref, nil
}

func (m *Memory) ListForUser(_ context.Context, usuarioID int64) ([]models.PaymentReference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.PaymentReference, 0, len(m.byUser[usuarioID]))
	for _, tok := range m.byUser[usuarioID] {
		out = append(out, m.byTok[tok])
	}
	return out, nil
}

func (m *Memory) LatestForUser(ctx context.Context, usuarioID int64) (models.PaymentReference, error) {
	refs, err := m.ListForUser(ctx, usuarioID)
	if err != nil {
		return models.PaymentReference{}, err
	}
	return latest(refs)
}
