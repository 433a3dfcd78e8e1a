// Package persist saves and restores the document through a key-value host
// store: a versioned envelope, its metadata record and a one-shot migration
// from the legacy per-key layout.
package persist

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/kvstore"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

const (
	// StateKey holds the current envelope.
	StateKey = "sb5_state_v5"
	// MetaKey holds the metadata record of the last successful write.
	MetaKey = "sb5_state_v5_meta"
	// LegacyPrefix prefixes every key of the legacy layout.
	LegacyPrefix = "smooth_builder_"
	// EnvelopeVersion is the schema version written into new envelopes.
	EnvelopeVersion = 5

	probeKey = "__sb5_storage_test__"
)

// Source reports where Load found the document.
type Source string

const (
	SourceEnvelope Source = "envelope"
	SourceLegacy   Source = "legacy"
	SourceNone     Source = "none"
)

// Envelope is the persisted wrapper around a document.
type Envelope struct {
	Version int             `json:"version"`
	SavedAt int64           `json:"savedAt"`
	State   json.RawMessage `json:"state"`
}

// Meta is the small record written next to the envelope.
type Meta struct {
	SavedAt int64 `json:"savedAt"`
	Version int   `json:"version"`
}

// Repository reads and writes documents through a kvstore.Store. Host store
// failures degrade to warnings and boolean results; they never surface as errors.
type Repository struct {
	store    kvstore.Store
	clock    clockwork.Clock
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures a Repository.
type Option func(*Repository)

// WithClock sets the clock used for savedAt timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(r *Repository) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the logger used for degradation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Repository) { r.recorder = metrics.OrNoop(rec) }
}

// NewRepository wraps store.
func NewRepository(store kvstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store:    store,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether the host store accepts a write and delete round trip.
func (r *Repository) Available(ctx context.Context) bool {
	if r == nil || r.store == nil {
		return false
	}
	if err := r.store.Set(ctx, probeKey, "1"); err != nil {
		return false
	}
	return r.store.Delete(ctx, probeKey) == nil
}

// Serialize returns the persisted form of doc: a deep copy without the
// transient section selection.
func Serialize(doc *document.Document) *document.Document {
	out := doc.Clone()
	out.UI.ActiveSection = ""
	out.UI.ActiveElementPath = ""
	return out
}

// Save writes the envelope and, only when that succeeded, the metadata record.
func (r *Repository) Save(ctx context.Context, doc *document.Document) bool {
	if doc == nil {
		return false
	}
	if !r.Available(ctx) {
		r.recorder.IncPersistWrite(metrics.WriteUnavailable)
		r.logger.Warn("Storage unavailable; document not saved", logfields.Key(StateKey))
		return false
	}

	state, err := json.Marshal(Serialize(doc))
	if err != nil {
		r.recorder.IncPersistWrite(metrics.WriteFailed)
		r.logger.Warn("Failed to encode document", logfields.Error(err))
		return false
	}
	now := r.clock.Now().UnixMilli()
	env, err := json.Marshal(Envelope{Version: EnvelopeVersion, SavedAt: now, State: state})
	if err != nil {
		r.recorder.IncPersistWrite(metrics.WriteFailed)
		r.logger.Warn("Failed to encode envelope", logfields.Error(err))
		return false
	}

	if err := r.store.Set(ctx, StateKey, string(env)); err != nil {
		r.recorder.IncPersistWrite(metrics.WriteFailed)
		r.logger.Warn("Failed to write envelope", logfields.Key(StateKey), logfields.Error(err))
		return false
	}
	meta, _ := json.Marshal(Meta{SavedAt: now, Version: EnvelopeVersion})
	if err := r.store.Set(ctx, MetaKey, string(meta)); err != nil {
		r.logger.Warn("Failed to write envelope metadata", logfields.Key(MetaKey), logfields.Error(err))
	}
	r.recorder.IncPersistWrite(metrics.WriteSuccess)
	r.logger.Debug("Document saved", logfields.Key(StateKey), logfields.Bytes(len(env)))
	return true
}

// Load returns the stored document: the envelope first, then the legacy
// layout. Corrupt data counts as absent.
func (r *Repository) Load(ctx context.Context) (*document.Document, Source) {
	if !r.Available(ctx) {
		r.logger.Warn("Storage unavailable; starting without persisted state")
		return nil, SourceNone
	}
	if doc, ok := r.loadEnvelope(ctx); ok {
		return doc, SourceEnvelope
	}
	if doc, ok := r.MigrateLegacy(ctx); ok {
		return doc, SourceLegacy
	}
	return nil, SourceNone
}

func (r *Repository) loadEnvelope(ctx context.Context) (*document.Document, bool) {
	raw, ok := r.get(ctx, StateKey)
	if !ok {
		return nil, false
	}
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		r.logger.Warn("Ignoring corrupt envelope", logfields.Key(StateKey), logfields.Error(err))
		return nil, false
	}
	doc, err := document.FromJSON(env.State)
	if err != nil {
		r.logger.Warn("Ignoring envelope without usable state", logfields.Key(StateKey), logfields.Error(err))
		return nil, false
	}
	return doc, true
}

// Meta returns the metadata of the last successful save.
func (r *Repository) Meta(ctx context.Context) (Meta, bool) {
	raw, ok := r.get(ctx, MetaKey)
	if !ok {
		return Meta{}, false
	}
	var m Meta
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return Meta{}, false
	}
	return m, true
}

// Remove deletes the envelope and its metadata.
func (r *Repository) Remove(ctx context.Context) {
	for _, key := range []string{StateKey, MetaKey} {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn("Failed to remove key", logfields.Key(key), logfields.Error(err))
		}
	}
}

// ClearAll deletes the envelope, the metadata and every legacy key.
func (r *Repository) ClearAll(ctx context.Context) bool {
	if !r.Available(ctx) {
		return false
	}
	legacy, err := r.store.Keys(ctx, LegacyPrefix)
	if err != nil {
		r.logger.Warn("Failed to list legacy keys", logfields.Error(err))
		return false
	}
	for _, key := range append([]string{StateKey, MetaKey}, legacy...) {
		if err := r.store.Delete(ctx, key); err != nil {
			r.logger.Warn("Failed to remove key", logfields.Key(key), logfields.Error(err))
			return false
		}
	}
	return true
}

func (r *Repository) get(ctx context.Context, key string) (string, bool) {
	raw, ok, err := r.store.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Failed to read key", logfields.Key(key), logfields.Error(err))
		return "", false
	}
	if !ok || raw == "" {
		return "", false
	}
	return raw, true
}

// LoadOrDefault returns the stored document or a fresh default one.
func LoadOrDefault(ctx context.Context, repo *Repository) (*document.Document, Source) {
	if repo != nil {
		if doc, src := repo.Load(ctx); doc != nil {
			return doc, src
		}
	}
	return document.Defaults(), SourceNone
}
