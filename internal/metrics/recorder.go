package metrics

import "time"

// DispatchOutcome labels what a dispatch did to the document.
type DispatchOutcome string

const (
	OutcomeChanged DispatchOutcome = "changed"
	OutcomeNoop    DispatchOutcome = "noop"
	OutcomeUndo    DispatchOutcome = "undo"
	OutcomeRedo    DispatchOutcome = "redo"
)

// WriteResult labels the result of a persistence write.
type WriteResult string

const (
	WriteSuccess     WriteResult = "success"
	WriteUnavailable WriteResult = "unavailable"
	WriteFailed      WriteResult = "failed"
)

// PaletteResult labels the result of an extraction request.
type PaletteResult string

const (
	PaletteExtracted  PaletteResult = "extracted"
	PaletteFallback   PaletteResult = "fallback"
	PaletteFailed     PaletteResult = "failed"
	PaletteSuperseded PaletteResult = "superseded"
)

// Recorder defines observability hooks for the document engine and the compiler.
// Implementations may forward to Prometheus; NoopRecorder is the default.
type Recorder interface {
	IncDispatch(action string, outcome DispatchOutcome)
	SetHistoryDepth(past, future int)
	IncPersistWrite(result WriteResult)
	ObserveCompileDuration(d time.Duration)
	ObserveExportDuration(d time.Duration)
	AddExtractedAssets(n int)
	IncPaletteResult(result PaletteResult)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncDispatch(string, DispatchOutcome)  {}
func (NoopRecorder) SetHistoryDepth(int, int)             {}
func (NoopRecorder) IncPersistWrite(WriteResult)          {}
func (NoopRecorder) ObserveCompileDuration(time.Duration) {}
func (NoopRecorder) ObserveExportDuration(time.Duration)  {}
func (NoopRecorder) AddExtractedAssets(int)               {}
func (NoopRecorder) IncPaletteResult(PaletteResult)       {}

// OrNoop returns r, or NoopRecorder when r is nil.
func OrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder{}
	}
	return r
}
