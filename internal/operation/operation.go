// Package operation provides the domain model for async smoke runs. An
// Operation moves through a linear lifecycle:
//
//	pending → running → passed | failed
//
// The store is the authoritative source of truth for operation state; HTTP
// handlers read and write exclusively through it.
package operation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomasbasham/storage-smoke/internal/smoke"
)

// Status represents the lifecycle state of an operation.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
)

// Done reports whether the status is terminal.
func (s Status) Done() bool {
	return s == StatusPassed || s == StatusFailed
}

// Operation represents a single async smoke run.
type Operation struct {
	ID        string        `json:"id"`
	Status    Status        `json:"status"`
	Checks    []smoke.Check `json:"checks"`
	Cleanup   bool          `json:"cleanup"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// Report is populated once the run has finished.
	Report *smoke.Report `json:"report,omitempty"`

	// Error is non-empty if the run could not be carried out at all.
	Error string `json:"error,omitempty"`
}

// Store is the interface for persisting and retrieving operations.
type Store interface {
	Create(checks []smoke.Check, cleanup bool) (*Operation, error)
	Get(id string) (*Operation, error)
	MarkRunning(id string) error
	MarkFinished(id string, report *smoke.Report) error
	MarkFailed(id string, err error) error
}

// MemoryStore is a concurrency-safe in-memory Store implementation.
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]*Operation
	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]*Operation), now: time.Now}
}

func (s *MemoryStore) Create(checks []smoke.Check, cleanup bool) (*Operation, error) {
	if len(checks) == 0 {
		checks = smoke.AllChecks
	}
	now := s.now()
	op := &Operation{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		Checks:    append([]smoke.Check(nil), checks...),
		Cleanup:   cleanup,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.ops[op.ID] = op
	s.mu.Unlock()

	copy := *op
	return &copy, nil
}

func (s *MemoryStore) Get(id string) (*Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.ops[id]
	if !ok {
		return nil, fmt.Errorf("operation %q not found", id)
	}
	// Return a copy to prevent callers from mutating internal state.
	copy := *op
	return &copy, nil
}

func (s *MemoryStore) MarkRunning(id string) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusRunning
	})
}

// MarkFinished records the report and derives the terminal status from it.
func (s *MemoryStore) MarkFinished(id string, report *smoke.Report) error {
	return s.update(id, func(op *Operation) {
		op.Report = report
		op.Status = StatusPassed
		if report.Failed() {
			op.Status = StatusFailed
		}
	})
}

func (s *MemoryStore) MarkFailed(id string, err error) error {
	return s.update(id, func(op *Operation) {
		op.Status = StatusFailed
		op.Error = err.Error()
	})
}

func (s *MemoryStore) update(id string, fn func(*Operation)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	op, ok := s.ops[id]
	if !ok {
		return fmt.Errorf("operation %q not found", id)
	}
	if op.Status.Done() {
		return fmt.Errorf("operation %q already %s", id, op.Status)
	}
	fn(op)
	op.UpdatedAt = s.now()
	return nil
}
