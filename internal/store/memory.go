package store

import (
	"context"
	"sync"

	"github.com/roach88/epcr/internal/report"
)

// Memory is a process-local medium. Reports are copied in and out, so
// callers never share state with the medium.
type Memory struct {
	mu      sync.RWMutex
	order   []string
	records map[string]report.PatientReport
}

var _ Medium = (*Memory)(nil)

// NewMemory returns an empty in-memory medium.
func NewMemory() *Memory {
	return &Memory{records: map[string]report.PatientReport{}}
}

func (m *Memory) Add(ctx context.Context, r report.PatientReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[r.ID]; exists {
		return storageErr("add", r.ID, ErrDuplicateID)
	}
	m.records[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *Memory) Get(ctx context.Context, id string) (report.PatientReport, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[id]
	return r, ok, nil
}

// GetAll returns reports in insertion order.
func (m *Memory) GetAll(ctx context.Context) ([]report.PatientReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]report.PatientReport, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id])
	}
	return out, nil
}

func (m *Memory) Put(ctx context.Context, r report.PatientReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[r.ID]; !exists {
		m.order = append(m.order, r.ID)
	}
	m.records[r.ID] = r
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[id]; !exists {
		return nil
	}
	delete(m.records, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }
