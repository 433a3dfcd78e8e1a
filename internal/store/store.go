// Package store owns the live document. It serialises dispatches, runs the
// reducer, records history, schedules persistence and notifies subscribers.
package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/history"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/persist"
	"git.home.luguber.info/inful/pagesmith/internal/reducer"
)

// Listener is called after every committed change with the new document.
// The document is shared and must be treated as read-only.
type Listener func(*document.Document)

// Store is the composition root around one document.
type Store struct {
	dispatchMu sync.Mutex

	stateMu sync.RWMutex
	state   *document.Document

	listenersMu sync.Mutex
	listeners   map[uint64]Listener
	nextID      uint64

	history  *history.Manager
	saver    *persist.DebouncedSaver
	policy   reducer.Policy
	logger   *slog.Logger
	recorder metrics.Recorder
}

type options struct {
	initial      *document.Document
	repo         *persist.Repository
	historyLimit int
	saveDebounce time.Duration
	clock        clockwork.Clock
	policy       reducer.Policy
	logger       *slog.Logger
	recorder     metrics.Recorder
}

// Option configures a Store.
type Option func(*options)

// WithInitial sets the starting document. It is copied.
func WithInitial(doc *document.Document) Option {
	return func(o *options) { o.initial = doc }
}

// WithRepository enables debounced persistence through repo.
func WithRepository(repo *persist.Repository) Option {
	return func(o *options) { o.repo = repo }
}

// WithHistoryLimit bounds the number of undo steps.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.historyLimit = n }
}

// WithSaveDebounce sets the persistence debounce window.
func WithSaveDebounce(d time.Duration) Option {
	return func(o *options) { o.saveDebounce = d }
}

// WithClock injects the clock used by history coalescing and the saver.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithPolicy replaces reducer.DefaultPolicy.
func WithPolicy(p reducer.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// New constructs a store. Without WithInitial it starts from document.Defaults.
func New(opts ...Option) *Store {
	o := options{
		historyLimit: history.DefaultMaxSize,
		saveDebounce: persist.DefaultDebounce,
		clock:        clockwork.NewRealClock(),
		policy:       reducer.DefaultPolicy,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = clockwork.NewRealClock()
	}
	if o.policy == nil {
		o.policy = reducer.DefaultPolicy
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	initial := document.Defaults()
	if o.initial != nil {
		initial = o.initial.Clone()
		initial.Reconcile()
	}

	s := &Store{
		state:     initial,
		listeners: make(map[uint64]Listener),
		history:   history.New(history.WithMaxSize(o.historyLimit), history.WithClock(o.clock)),
		policy:    o.policy,
		logger:    o.logger,
		recorder:  metrics.OrNoop(o.recorder),
	}
	if o.repo != nil {
		s.saver = persist.NewDebouncedSaver(o.repo, o.clock, o.saveDebounce)
	}
	s.history.Init(initial)
	return s
}

// Boot loads the persisted document (envelope, then legacy layout, then
// defaults) and returns a store persisting through repo.
func Boot(ctx context.Context, repo *persist.Repository, opts ...Option) *Store {
	doc, src := persist.LoadOrDefault(ctx, repo)
	opts = append(opts, WithInitial(doc), WithRepository(repo))
	s := New(opts...)
	s.logger.Info("Store booted", logfields.Source(string(src)), "sections", len(doc.Layout.Sections))
	return s
}

// GetState returns the committed document. Callers must not modify it.
func (s *Store) GetState() *document.Document {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Subscribe registers l and returns a function removing it.
func (s *Store) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// Dispatch applies a to the document and reports whether it changed.
// Listeners run before Dispatch returns; they must not dispatch themselves.
func (s *Store) Dispatch(a reducer.Action) bool {
	if a.Type == "" {
		return false
	}
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()

	switch a.Type {
	case reducer.Undo:
		return s.travel(a.Type, s.history.Undo)
	case reducer.Redo:
		return s.travel(a.Type, s.history.Redo)
	}

	current := s.GetState()
	next := reducer.Reduce(current, a)
	if next == current || document.Equal(current, next) {
		s.recorder.IncDispatch(string(a.Type), metrics.OutcomeNoop)
		return false
	}

	decision := s.policy(a)
	s.commit(next)
	if decision.Record && !a.SkipsHistory() {
		s.history.Record(next, history.Meta{CoalesceKey: decision.CoalesceKey, Window: decision.Window})
	}
	s.recordDepth()
	s.recorder.IncDispatch(string(a.Type), metrics.OutcomeChanged)
	s.logger.Debug("Action committed", logfields.Action(string(a.Type)))
	return true
}

func (s *Store) travel(t reducer.ActionType, step func() (*document.Document, bool)) bool {
	doc, ok := step()
	if !ok {
		s.recorder.IncDispatch(string(t), metrics.OutcomeNoop)
		return false
	}
	s.commit(doc)
	s.recordDepth()
	outcome := metrics.OutcomeUndo
	if t == reducer.Redo {
		outcome = metrics.OutcomeRedo
	}
	s.recorder.IncDispatch(string(t), outcome)
	return true
}

func (s *Store) commit(next *document.Document) {
	s.stateMu.Lock()
	s.state = next
	s.stateMu.Unlock()

	if s.saver != nil {
		s.saver.Save(next)
	}

	s.listenersMu.Lock()
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	s.listenersMu.Unlock()
	slices.Sort(ids)
	for _, id := range ids {
		s.listenersMu.Lock()
		l, ok := s.listeners[id]
		s.listenersMu.Unlock()
		if ok {
			l(next)
		}
	}
}

func (s *Store) recordDepth() {
	past, future := s.history.Len()
	s.recorder.SetHistoryDepth(past, future)
}

// CanUndo reports whether an undo step exists.
func (s *Store) CanUndo() bool { return s.history.CanUndo() }

// CanRedo reports whether a redo step exists.
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// HistoryDepth returns the number of undo and redo steps.
func (s *Store) HistoryDepth() (past, future int) { return s.history.Len() }

// Flush writes any pending persistence immediately.
func (s *Store) Flush(ctx context.Context) bool {
	if s.saver == nil {
		return false
	}
	return s.saver.Flush(ctx)
}

// Close flushes pending persistence and drops all listeners.
func (s *Store) Close(ctx context.Context) {
	s.Flush(ctx)
	s.listenersMu.Lock()
	clear(s.listeners)
	s.listenersMu.Unlock()
}
