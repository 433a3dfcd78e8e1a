// Package history keeps bounded undo/redo stacks of document snapshots with
// time-windowed coalescing of rapid same-key edits.
package history

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

const (
	// DefaultMaxSize bounds the number of undo steps kept.
	DefaultMaxSize = 50
	// DefaultWindow is used when a record carries a coalesce key but no window.
	DefaultWindow = 400 * time.Millisecond
)

// Meta controls coalescing of a single record.
type Meta struct {
	CoalesceKey string
	Window      time.Duration
}

// Manager holds past, present and future snapshots. Every snapshot is an
// independent deep copy; documents returned by the manager are copies too.
type Manager struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	maxSize int
	window  time.Duration

	past    []*document.Document // oldest first
	present *document.Document
	future  []*document.Document // next redo first

	lastKey string
	lastAt  time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithMaxSize sets the undo bound. Values below one are raised to one.
func WithMaxSize(n int) Option {
	return func(m *Manager) { m.maxSize = max(1, n) }
}

// WithWindow sets the default coalescing window.
func WithWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithClock injects the time source used for coalescing.
func WithClock(c clockwork.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// New creates an empty manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		clock:   clockwork.NewRealClock(),
		maxSize: DefaultMaxSize,
		window:  DefaultWindow,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init discards all history and sets the present snapshot.
func (m *Manager) Init(doc *document.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past = nil
	m.future = nil
	m.present = doc.Clone()
	m.breakChain()
}

// Record stores next as the new present.
//
// When meta carries the same coalesce key as the previous record and the
// previous record happened within the window, present is replaced without
// pushing a new undo step. Otherwise present moves onto past (evicting the
// oldest entry beyond the bound) and future is cleared.
func (m *Manager) Record(next *document.Document, meta Meta) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	snapshot := next.Clone()

	if m.present == nil {
		m.present = snapshot
		m.remember(meta.CoalesceKey, now)
		return
	}

	window := meta.Window
	if window <= 0 {
		window = m.window
	}
	if meta.CoalesceKey != "" &&
		meta.CoalesceKey == m.lastKey &&
		len(m.past) > 0 &&
		now.Sub(m.lastAt) <= window {
		m.present = snapshot
		m.future = nil
		m.lastAt = now
		return
	}

	m.past = append(m.past, m.present)
	if len(m.past) > m.maxSize {
		m.past = append([]*document.Document(nil), m.past[len(m.past)-m.maxSize:]...)
	}
	m.present = snapshot
	m.future = nil
	m.remember(meta.CoalesceKey, now)
}

func (m *Manager) remember(key string, at time.Time) {
	m.lastKey = key
	if key == "" {
		m.lastAt = time.Time{}
		return
	}
	m.lastAt = at
}

func (m *Manager) breakChain() {
	m.lastKey = ""
	m.lastAt = time.Time{}
}

// Undo moves one step back and returns a copy of the restored snapshot.
// It reports false when there is nothing to undo.
func (m *Manager) Undo() (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.past) == 0 {
		return nil, false
	}
	prev := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	if m.present != nil {
		m.future = append([]*document.Document{m.present}, m.future...)
	}
	m.present = prev
	m.breakChain()
	return prev.Clone(), true
}

// Redo moves one step forward and returns a copy of the restored snapshot.
// It reports false when there is nothing to redo.
func (m *Manager) Redo() (*document.Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.future) == 0 {
		return nil, false
	}
	next := m.future[0]
	m.future = m.future[1:]
	if m.present != nil {
		m.past = append(m.past, m.present)
		if len(m.past) > m.maxSize {
			m.past = m.past[len(m.past)-m.maxSize:]
		}
	}
	m.present = next
	m.breakChain()
	return next.Clone(), true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past) > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.future) > 0
}

// Current returns a copy of the present snapshot, or nil before Init.
func (m *Manager) Current() *document.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.present.Clone()
}

// Len returns the number of undo and redo steps available.
func (m *Manager) Len() (past, future int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past), len(m.future)
}

// Clear drops undo and redo stacks but keeps the present snapshot.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past = nil
	m.future = nil
	m.breakChain()
}
