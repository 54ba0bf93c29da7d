package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditStatus classifies the outcome recorded for a service command.
type AuditStatus string

// Audit outcomes.
const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry records one service command execution.
type AuditEntry struct {
	ID        string      `json:"id"`
	At        time.Time   `json:"at"`
	Operation string      `json:"operation"`
	Status    AuditStatus `json:"status"`
	Reason    string      `json:"reason,omitempty"`
	StableID  string      `json:"stable_id,omitempty"`
	ActorID   string      `json:"actor_id,omitempty"`
	EntityID  string      `json:"entity_id,omitempty"`
}

// AuditRecorder receives one entry per service command.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MemoryAuditRecorder retains audit entries in memory, capped at a fixed
// size with the oldest entries dropped first.
type MemoryAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
	limit   int
}

// NewMemoryAuditRecorder constructs a recorder retaining at most limit
// entries; limit <= 0 means unbounded.
func NewMemoryAuditRecorder(limit int) *MemoryAuditRecorder {
	return &MemoryAuditRecorder{limit: limit}
}

// Record implements AuditRecorder.
func (r *MemoryAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.At.IsZero() {
		entry.At = time.Now().UTC()
	}
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	if r.limit > 0 && len(r.entries) > r.limit {
		r.entries = append([]AuditEntry(nil), r.entries[len(r.entries)-r.limit:]...)
	}
	r.mu.Unlock()
}

// Entries returns a copy of the retained entries, oldest first.
func (r *MemoryAuditRecorder) Entries() []AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AuditEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
