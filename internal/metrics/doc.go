// Package metrics provides the observability hooks of pagesmith.
//
// Components receive a Recorder through their options and default to
// NoopRecorder, so nothing needs nil checks:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	st := store.New(store.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
//
// The live preview server is the only place that exposes a registry; CLI
// one-shot commands keep the noop implementation.
package metrics
