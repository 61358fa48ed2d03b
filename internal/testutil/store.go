package testutil

import (
	"context"
	"sync"

	"github.com/roach88/epcr/internal/report"
	"github.com/roach88/epcr/internal/store"
)

// Operation names accepted by ControlledStore.
const (
	OpAdd    = "add"
	OpGet    = "get"
	OpGetAll = "getAll"
	OpPut    = "put"
	OpDelete = "delete"
)

// Gate pauses one store call until the test releases it.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGate() *Gate {
	return &Gate{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
}

// Entered is closed once the call reaches the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

// Release lets the held call continue. Safe to call more than once.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

func (g *Gate) wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	close(g.entered)
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ControlledStore wraps a PersistentStore and lets a test count calls,
// inject failures and hold individual calls to force a completion order.
//
// Thread-safety: safe for concurrent use.
type ControlledStore struct {
	inner store.PersistentStore

	mu     sync.Mutex
	calls  map[string]int
	fails  map[string][]error
	before map[string][]*Gate
	after  map[string][]*Gate
}

var _ store.PersistentStore = (*ControlledStore)(nil)

// NewControlledStore wraps inner. A nil inner uses a fresh store.Memory.
func NewControlledStore(inner store.PersistentStore) *ControlledStore {
	if inner == nil {
		inner = store.NewMemory()
	}
	return &ControlledStore{
		inner:  inner,
		calls:  map[string]int{},
		fails:  map[string][]error{},
		before: map[string][]*Gate{},
		after:  map[string][]*Gate{},
	}
}

// Inner returns the wrapped store, for inspecting the medium directly.
func (s *ControlledStore) Inner() store.PersistentStore {
	return s.inner
}

// Calls returns how many times op was invoked, failed calls included.
func (s *ControlledStore) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// FailNext makes the next call of op return err without reaching the
// wrapped store. Repeated calls queue further failures.
func (s *ControlledStore) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fails[op] = append(s.fails[op], err)
}

// HoldBefore pauses the next call of op before it reaches the wrapped store.
func (s *ControlledStore) HoldBefore(op string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := newGate()
	s.before[op] = append(s.before[op], g)
	return g
}

// HoldAfter pauses the next call of op after the wrapped store has
// completed it but before the result is returned.
func (s *ControlledStore) HoldAfter(op string) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := newGate()
	s.after[op] = append(s.after[op], g)
	return g
}

func (s *ControlledStore) Add(ctx context.Context, r report.PatientReport) error {
	return s.run(ctx, OpAdd, func() error {
		return s.inner.Add(ctx, r)
	})
}

func (s *ControlledStore) Get(ctx context.Context, id string) (report.PatientReport, bool, error) {
	var (
		r  report.PatientReport
		ok bool
	)
	err := s.run(ctx, OpGet, func() error {
		var err error
		r, ok, err = s.inner.Get(ctx, id)
		return err
	})
	if err != nil {
		return report.PatientReport{}, false, err
	}
	return r, ok, nil
}

func (s *ControlledStore) GetAll(ctx context.Context) ([]report.PatientReport, error) {
	var all []report.PatientReport
	err := s.run(ctx, OpGetAll, func() error {
		var err error
		all, err = s.inner.GetAll(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

func (s *ControlledStore) Put(ctx context.Context, r report.PatientReport) error {
	return s.run(ctx, OpPut, func() error {
		return s.inner.Put(ctx, r)
	})
}

func (s *ControlledStore) Delete(ctx context.Context, id string) error {
	return s.run(ctx, OpDelete, func() error {
		return s.inner.Delete(ctx, id)
	})
}

func (s *ControlledStore) run(ctx context.Context, op string, call func() error) error {
	before, after, injected := s.enter(op)

	if err := before.wait(ctx); err != nil {
		return err
	}
	if injected != nil {
		return injected
	}

	err := call()
	if werr := after.wait(ctx); werr != nil && err == nil {
		return werr
	}
	return err
}

func (s *ControlledStore) enter(op string) (before, after *Gate, injected error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[op]++
	if q := s.fails[op]; len(q) > 0 {
		injected = q[0]
		s.fails[op] = q[1:]
	}
	if q := s.before[op]; len(q) > 0 {
		before = q[0]
		s.before[op] = q[1:]
	}
	if q := s.after[op]; len(q) > 0 {
		after = q[0]
		s.after[op] = q[1:]
	}
	return before, after, injected
}
