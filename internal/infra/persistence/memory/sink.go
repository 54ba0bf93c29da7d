// Package memory provides an in-process snapshot sink for tests and
// ephemeral deployments.
package memory

import (
	"context"
	"sync"

	"stablecore/pkg/domain"
)

var _ domain.SnapshotSink = (*Sink)(nil)

// Sink keeps the latest snapshot in memory.
type Sink struct {
	mu    sync.Mutex
	data  []byte
	saved int
}

// NewSink returns an empty in-memory sink.
func NewSink() *Sink { return &Sink{} }

// Load returns the most recently saved snapshot.
func (s *Sink) Load(ctx context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, false, nil
	}
	out := make([]byte, len(s.data))
	copy(out, s.data)
	return out, true, nil
}

// Save replaces the stored snapshot.
func (s *Sink) Save(ctx context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make([]byte, len(data))
	copy(s.data, data)
	s.saved++
	return nil
}

// SaveCount reports how many times Save has been called.
func (s *Sink) SaveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}
