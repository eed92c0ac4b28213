package memory

import (
	"context"
	"sync"

	"github.com/agenthands/symbiosis/internal/core/model"
)

// MockStore is an in-memory Store that records its calls.
type MockStore struct {
	Memories    []string
	RetrieveErr error
	StoreErr    error

	mu        sync.Mutex
	retrieved [][]string
	stored    []model.MemoryRecord
}

func (m *MockStore) Retrieve(ctx context.Context, keywords []string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieved = append(m.retrieved, keywords)
	if m.RetrieveErr != nil {
		return nil, m.RetrieveErr
	}
	return m.Memories, nil
}

func (m *MockStore) Store(ctx context.Context, record model.MemoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, record)
	return m.StoreErr
}

// RetrieveCalls returns the keyword lists of every Retrieve call.
func (m *MockStore) RetrieveCalls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.retrieved...)
}

// Stored returns every record passed to Store.
func (m *MockStore) Stored() []model.MemoryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.MemoryRecord(nil), m.stored...)
}
