package persistence

import (
	"bot-arena-go/internal/session"
	"encoding/json"
	"sync"
)

// MemoryRepository keeps the session in process memory. It round-trips
// through JSON so callers observe the same shape a durable store returns.
type MemoryRepository struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) SaveSession(s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.data = data
	r.mu.Unlock()
	return nil
}

func (r *MemoryRepository) LoadSession() (*session.Session, error) {
	r.mu.Lock()
	data := r.data
	r.mu.Unlock()
	if data == nil {
		return nil, nil
	}
	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MemoryRepository) Close() error { return nil }
