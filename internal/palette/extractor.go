package palette

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

// ErrSuperseded is returned for a request replaced by a newer submission.
var ErrSuperseded = errors.PaletteError("extraction superseded by a newer request").Build()

// Extractor runs extractions in the background and keeps only the result of
// the most recent submission.
type Extractor struct {
	opts     []Option
	logger   *slog.Logger
	recorder metrics.Recorder
	extract  func(ctx context.Context, dataURL string, opts ...Option) (Result, error)

	mu         sync.Mutex
	seq        uint64
	latest     *Result
	lastSource string
}

// NewExtractor returns an Extractor using opts for every request.
func NewExtractor(logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		opts:     opts,
		logger:   logger,
		recorder: metrics.OrNoop(recorder),
		extract:  ExtractDataURL,
	}
}

// Ticket tracks one submission.
type Ticket struct {
	id   uint64
	done chan struct{}
	res  Result
	err  error
}

// Wait blocks until the extraction finished or ctx is done.
func (t *Ticket) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.res, t.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Submit starts extracting dataURL. Any earlier submission that has not yet
// completed is superseded; its Wait returns ErrSuperseded.
func (e *Extractor) Submit(ctx context.Context, dataURL string) *Ticket {
	e.mu.Lock()
	e.seq++
	t := &Ticket{id: e.seq, done: make(chan struct{})}
	e.mu.Unlock()

	go func() {
		defer close(t.done)
		res, err := e.extract(ctx, dataURL, e.opts...)

		e.mu.Lock()
		defer e.mu.Unlock()
		if t.id != e.seq {
			t.err = ErrSuperseded
			e.recorder.IncPaletteResult(metrics.PaletteSuperseded)
			return
		}
		if err != nil {
			t.err = err
			e.recorder.IncPaletteResult(metrics.PaletteFailed)
			e.logger.Warn("Palette extraction failed", logfields.Error(err))
			return
		}
		t.res = res
		e.latest = &res
		e.lastSource = dataURL
		if res.Fallback {
			e.recorder.IncPaletteResult(metrics.PaletteFallback)
		} else {
			e.recorder.IncPaletteResult(metrics.PaletteExtracted)
		}
	}()
	return t
}

// SubmitIfChanged submits dataURL unless it is the source of the latest
// accepted result, in which case it returns nil.
func (e *Extractor) SubmitIfChanged(ctx context.Context, dataURL string) *Ticket {
	e.mu.Lock()
	same := e.latest != nil && e.lastSource == dataURL
	e.mu.Unlock()
	if same {
		return nil
	}
	return e.Submit(ctx, dataURL)
}

// Latest returns the last accepted result.
func (e *Extractor) Latest() (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.latest == nil {
		return Result{}, false
	}
	return *e.latest, true
}
