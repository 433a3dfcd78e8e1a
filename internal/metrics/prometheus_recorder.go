package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "pagesmith"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	dispatches      *prom.CounterVec
	historyPast     prom.Gauge
	historyFuture   prom.Gauge
	persistWrites   *prom.CounterVec
	compileDuration prom.Histogram
	exportDuration  prom.Histogram
	extractedAssets prom.Counter
	paletteResults  *prom.CounterVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		dispatches: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Dispatched actions by type and outcome",
		}, []string{"action", "outcome"}),
		historyPast: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "history_undo_depth",
			Help:      "Undo steps currently available",
		}),
		historyFuture: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "history_redo_depth",
			Help:      "Redo steps currently available",
		}),
		persistWrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "persist_writes_total",
			Help:      "Envelope writes by result",
		}, []string{"result"}),
		compileDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compile_duration_seconds",
			Help:      "Duration of site compilation",
			Buckets:   prom.DefBuckets,
		}),
		exportDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "export_duration_seconds",
			Help:      "Duration of bundle packaging including compilation",
			Buckets:   prom.DefBuckets,
		}),
		extractedAssets: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "extracted_assets_total",
			Help:      "Inline images extracted into asset files",
		}),
		paletteResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "palette_extractions_total",
			Help:      "Palette extraction requests by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.dispatches, pr.historyPast, pr.historyFuture, pr.persistWrites,
		pr.compileDuration, pr.exportDuration, pr.extractedAssets, pr.paletteResults)
	return pr
}

func (p *PrometheusRecorder) IncDispatch(action string, outcome DispatchOutcome) {
	if p == nil {
		return
	}
	p.dispatches.WithLabelValues(action, string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetHistoryDepth(past, future int) {
	if p == nil {
		return
	}
	p.historyPast.Set(float64(past))
	p.historyFuture.Set(float64(future))
}

func (p *PrometheusRecorder) IncPersistWrite(result WriteResult) {
	if p == nil {
		return
	}
	p.persistWrites.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveCompileDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.compileDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveExportDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.exportDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddExtractedAssets(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.extractedAssets.Add(float64(n))
}

func (p *PrometheusRecorder) IncPaletteResult(result PaletteResult) {
	if p == nil {
		return
	}
	p.paletteResults.WithLabelValues(string(result)).Inc()
}
