package store

import (
	"context"
	"sync"

	"github.com/Farmer96/LuckGen/internal/models"
)

// Memory keeps the encoded document in process memory. Values are encoded
// on Save and decoded on Load, so callers never share state with the store.
type Memory struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// Load returns a fresh copy of the stored document.
func (m *Memory) Load(_ context.Context) (*models.LotteryConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.data == nil {
		return nil, ErrNotFound
	}
	return decode(m.data)
}

// Save replaces the stored document.
func (m *Memory) Save(_ context.Context, cfg *models.LotteryConfig) error {
	data, err := encode(cfg)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

// Delete discards the stored document.
func (m *Memory) Delete(_ context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}
