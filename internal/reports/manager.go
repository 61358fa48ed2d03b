package reports

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/epcr/internal/metrics"
	"github.com/roach88/epcr/internal/report"
	"github.com/roach88/epcr/internal/store"
)

// State is a copy of the manager's observable state.
// Reports is shared between listeners of one change and must not be modified.
type State struct {
	Reports []report.PatientReport
	Loading bool
	Err     string
}

// SnapshotStore persists the cache between processes.
type SnapshotStore interface {
	// Load returns the saved reports; found is false when nothing was saved.
	Load() (reports []report.PatientReport, found bool, err error)
	Save(reports []report.PatientReport) error
}

// Option configures a Manager.
type Option func(*Manager)

// WithIDGenerator overrides the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(m *Manager) { m.ids = g }
}

// WithClock overrides the wall clock used for report timestamps.
func WithClock(c Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics records operations on r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithSnapshot mirrors the cache to s after every change and enables Rehydrate.
func WithSnapshot(s SnapshotStore) Option {
	return func(m *Manager) { m.snapshot = s }
}

type listener struct {
	id int
	fn func(State)
}

// Manager owns the report cache and drives the medium.
type Manager struct {
	store    store.PersistentStore
	ids      IDGenerator
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Recorder
	snapshot SnapshotStore

	mu        sync.Mutex
	reports   []report.PatientReport
	loading   bool
	err       string
	listeners []listener
	nextID    int

	// notifyMu orders snapshot writes and listener calls. Lock order is
	// notifyMu, then mu.
	notifyMu sync.Mutex
}

// New creates a manager over st with an empty cache.
func New(st store.PersistentStore, opts ...Option) *Manager {
	m := &Manager{
		store: st,
		ids:   UUIDv7Generator{},
		clock: SystemClock{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// State returns the current reports, loading flag and error together.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

// Reports returns a copy of the cached reports in cache order.
func (m *Manager) Reports() []report.PatientReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyLocked()
}

// Loading reports whether a LoadReports call is in flight.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loading
}

// Err returns the message of the last failed operation, or "" if the last
// completed operation succeeded.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Subscribe registers fn to receive the state after every change.
// fn runs on the goroutine that made the change. It may call Reports,
// State, Err and Loading, but must not call AddReport, UpdateReport,
// LoadReports, DeleteReport or Rehydrate.
// The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners = append(m.listeners, listener{id: id, fn: fn})

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, l := range m.listeners {
			if l.id == id {
				m.listeners = append(m.listeners[:i:i], m.listeners[i+1:]...)
				return
			}
		}
	}
}

// AddReport creates a report from d with a fresh id and the current time,
// persists it, then appends it to the cache.
func (m *Manager) AddReport(ctx context.Context, d report.Draft) (report.PatientReport, error) {
	start := time.Now()
	r := report.New(m.ids.Generate(), m.clock.Now(), d)

	if err := m.store.Add(ctx, r); err != nil {
		m.fail("add", msgAdd, start, err)
		return report.PatientReport{}, err
	}

	m.apply(true, func() {
		m.reports = append(m.reports, r)
		m.err = ""
	})
	m.metrics.Observe("add", start, nil)
	m.logger.Debug("report added", "id", r.ID, "patient_id", r.PatientID)
	return r, nil
}

// UpdateReport overlays p on the cached report with the given id and
// persists the result with Put. The cached copy is the pre-image even if the
// medium holds a newer one. An id absent from the cache fails with
// *NotFoundError before the medium is touched.
func (m *Manager) UpdateReport(ctx context.Context, id string, p report.Patch) (report.PatientReport, error) {
	start := time.Now()

	m.mu.Lock()
	pre, ok := m.findLocked(id)
	m.mu.Unlock()

	if !ok {
		err := &NotFoundError{ID: id}
		m.fail("update", msgUpdate, start, err)
		return report.PatientReport{}, err
	}

	merged := p.Apply(pre)
	if err := m.store.Put(ctx, merged); err != nil {
		m.fail("update", msgUpdate, start, err)
		return report.PatientReport{}, err
	}

	m.apply(true, func() {
		replaced := false
		for i := range m.reports {
			if m.reports[i].ID == id {
				m.reports[i] = merged
				replaced = true
			}
		}
		// A delete that finished while Put was in flight removed the entry;
		// the Put has already written the record back to the medium.
		if !replaced {
			m.reports = append(m.reports, merged)
		}
		m.err = ""
	})
	m.metrics.Observe("update", start, nil)
	m.logger.Debug("report updated", "id", id, "fields", p.Fields())
	return merged, nil
}

// LoadReports replaces the cache with everything the medium holds.
// On failure the previous cache is kept.
func (m *Manager) LoadReports(ctx context.Context) error {
	start := time.Now()
	m.apply(false, func() { m.loading = true })

	all, err := m.store.GetAll(ctx)
	if err != nil {
		m.apply(false, func() {
			m.loading = false
			m.err = msgLoad + ": " + err.Error()
		})
		m.metrics.Observe("load", start, err)
		m.logger.Warn("load reports failed", "error", err)
		return err
	}

	loaded := make([]report.PatientReport, len(all))
	copy(loaded, all)

	m.apply(true, func() {
		m.reports = loaded
		m.loading = false
		m.err = ""
	})
	m.metrics.Observe("load", start, nil)
	m.logger.Debug("reports loaded", "count", len(loaded))
	return nil
}

// DeleteReport removes the report from the medium, then from the cache.
func (m *Manager) DeleteReport(ctx context.Context, id string) error {
	start := time.Now()

	if err := m.store.Delete(ctx, id); err != nil {
		m.fail("delete", msgDelete, start, err)
		return err
	}

	m.apply(true, func() {
		kept := m.reports[:0:0]
		for _, r := range m.reports {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		m.reports = kept
		m.err = ""
	})
	m.metrics.Observe("delete", start, nil)
	m.logger.Debug("report deleted", "id", id)
	return nil
}

// GetReport reads one report straight from the medium. The cache and the
// error state are not touched.
func (m *Manager) GetReport(ctx context.Context, id string) (report.PatientReport, bool, error) {
	start := time.Now()
	r, ok, err := m.store.Get(ctx, id)
	m.metrics.Observe("get", start, err)
	return r, ok, err
}

// Rehydrate fills the cache from the snapshot store. It is meant to run once,
// before the first LoadReports.
//
// No snapshot leaves an empty cache. A corrupt snapshot also leaves an empty
// cache, sets the error and returns the *store.StorageError.
func (m *Manager) Rehydrate() error {
	if m.snapshot == nil {
		return nil
	}
	start := time.Now()

	saved, found, err := m.snapshot.Load()
	if err != nil {
		m.apply(false, func() {
			m.reports = nil
			m.err = msgRehydrate + ": " + err.Error()
		})
		m.metrics.Observe("rehydrate", start, err)
		m.logger.Warn("snapshot unusable, starting with an empty cache", "error", err)
		return err
	}

	m.apply(false, func() {
		if found {
			m.reports = append([]report.PatientReport(nil), saved...)
		} else {
			m.reports = nil
		}
	})
	m.metrics.Observe("rehydrate", start, nil)
	m.logger.Debug("cache rehydrated", "found", found, "count", len(saved))
	return nil
}

// fail records a failed operation without touching the cache.
func (m *Manager) fail(op, msg string, start time.Time, err error) {
	m.apply(false, func() { m.err = msg + ": " + err.Error() })
	m.metrics.Observe(op, start, err)
	m.logger.Warn(msg, "error", err)
}

// apply runs mutate under mu, then hands the resulting state to the
// snapshot store (when persist is set) and to listeners.
//
// notifyMu is taken before mu and held until listeners return, so changes
// are delivered in the order they were applied. mu is released before any
// snapshot write or listener call.
func (m *Manager) apply(persist bool, mutate func()) {
	m.notifyMu.Lock()
	defer m.notifyMu.Unlock()

	m.mu.Lock()
	mutate()
	st := m.stateLocked()
	listeners := append([]listener(nil), m.listeners...)
	m.mu.Unlock()

	m.metrics.SetCacheSize(len(st.Reports))

	if persist && m.snapshot != nil {
		if err := m.snapshot.Save(st.Reports); err != nil {
			m.metrics.SnapshotFailed()
			m.logger.Warn("snapshot write failed", "error", err)
		}
	}

	for _, l := range listeners {
		l.fn(st)
	}
}

func (m *Manager) findLocked(id string) (report.PatientReport, bool) {
	for _, r := range m.reports {
		if r.ID == id {
			return r, true
		}
	}
	return report.PatientReport{}, false
}

func (m *Manager) copyLocked() []report.PatientReport {
	out := make([]report.PatientReport, len(m.reports))
	copy(out, m.reports)
	return out
}

func (m *Manager) stateLocked() State {
	return State{
		Reports: m.copyLocked(),
		Loading: m.loading,
		Err:     m.err,
	}
}
