package persist

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

// DefaultDebounce is the delay between the last Save call and the write.
const DefaultDebounce = 450 * time.Millisecond

// DebouncedSaver collapses bursts of saves into one write of the latest document.
// Writes are serialised; a write older than the last one stored is dropped.
type DebouncedSaver struct {
	repo  *Repository
	clock clockwork.Clock
	wait  time.Duration

	mu      sync.Mutex
	pending *document.Document
	gen     uint64
	timer   clockwork.Timer

	writeMu sync.Mutex
	written uint64
}

// NewDebouncedSaver returns a saver writing through repo after wait. A zero
// wait selects DefaultDebounce; a nil clock selects the real clock.
func NewDebouncedSaver(repo *Repository, clock clockwork.Clock, wait time.Duration) *DebouncedSaver {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &DebouncedSaver{repo: repo, clock: clock, wait: wait}
}

// Save schedules a write of doc, replacing any pending document and restarting
// the wait.
func (s *DebouncedSaver) Save(doc *document.Document) {
	if s == nil || s.repo == nil || doc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = doc.Clone()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(s.wait, s.fire)
}

func (s *DebouncedSaver) fire() {
	s.mu.Lock()
	doc, gen := s.pending, s.gen
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()
	if doc != nil {
		s.write(context.Background(), doc, gen)
	}
}

func (s *DebouncedSaver) write(ctx context.Context, doc *document.Document, gen uint64) bool {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if gen <= s.written {
		return false
	}
	if !s.repo.Save(ctx, doc) {
		return false
	}
	s.written = gen
	return true
}

// Flush performs the pending write now. It reports whether a write happened
// and succeeded.
func (s *DebouncedSaver) Flush(ctx context.Context) bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	doc, gen := s.pending, s.gen
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	if doc == nil {
		return false
	}
	return s.write(ctx, doc, gen)
}

// Cancel drops the pending write.
func (s *DebouncedSaver) Cancel() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a write is scheduled.
func (s *DebouncedSaver) Pending() bool {
	if s == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}
