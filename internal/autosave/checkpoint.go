// Package autosave writes periodic checkpoints of a live store session.
//
// A checkpoint flushes the store's pending debounced save and then writes a
// snapshot of the document under its own key, so a session can be rolled
// back to an earlier state even after the main envelope was overwritten.
package autosave

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/kvstore"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/persist"
	"git.home.luguber.info/inful/pagesmith/internal/store"
)

// KeyPrefix prefixes every checkpoint key. Keys sort chronologically.
const KeyPrefix = "sb5_checkpoint_"

// DefaultKeep is the number of checkpoints retained when no limit is set.
const DefaultKeep = 10

const jobName = "checkpoint"

// Checkpoint is a stored snapshot.
type Checkpoint struct {
	Key      string
	ID       string
	SavedAt  time.Time
	Document *document.Document
}

type record struct {
	ID      string          `json:"id"`
	SavedAt int64           `json:"savedAt"`
	State   json.RawMessage `json:"state"`
}

// Checkpointer schedules checkpoints of a store into a key-value store.
type Checkpointer struct {
	store  *store.Store
	kv     kvstore.Store
	clock  clockwork.Clock
	keep   int
	logger *slog.Logger

	scheduler gocron.Scheduler

	mu   sync.Mutex
	last *document.Document
}

// Option configures a Checkpointer.
type Option func(*Checkpointer)

// WithClock sets the clock used for scheduling and checkpoint timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(cp *Checkpointer) {
		if c != nil {
			cp.clock = c
		}
	}
}

// WithKeep sets how many checkpoints are retained.
func WithKeep(n int) Option {
	return func(cp *Checkpointer) {
		if n > 0 {
			cp.keep = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cp *Checkpointer) {
		if l != nil {
			cp.logger = l
		}
	}
}

// New creates a Checkpointer for st writing into kv.
func New(st *store.Store, kv kvstore.Store, opts ...Option) (*Checkpointer, error) {
	if st == nil || kv == nil {
		return nil, errors.InternalError("checkpointer requires a store and a key-value backend").Build()
	}
	cp := &Checkpointer{
		store:  st,
		kv:     kv,
		clock:  clockwork.NewRealClock(),
		keep:   DefaultKeep,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(cp)
	}
	s, err := gocron.NewScheduler(gocron.WithClock(cp.clock))
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	cp.scheduler = s
	return cp, nil
}

// Start schedules a checkpoint every interval.
func (c *Checkpointer) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.ConfigError("checkpoint interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	_, err := c.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(c.run, ctx),
		gocron.WithName(jobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint job: %w", err)
	}
	c.logger.Info("Starting checkpoint scheduler", logfields.Job(jobName), slog.String("interval", interval.String()))
	c.scheduler.Start()
	return nil
}

// Stop shuts the scheduler down and writes a final checkpoint.
func (c *Checkpointer) Stop(ctx context.Context) error {
	c.logger.Info("Stopping checkpoint scheduler", logfields.Job(jobName))
	err := c.scheduler.Shutdown()
	if _, _, cerr := c.Checkpoint(ctx); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (c *Checkpointer) run(ctx context.Context) {
	if _, _, err := c.Checkpoint(ctx); err != nil {
		c.logger.Warn("Checkpoint failed", logfields.Job(jobName), logfields.Error(err))
	}
}

// Checkpoint flushes pending saves and snapshots the current document. It
// reports false without writing when nothing changed since the last checkpoint.
func (c *Checkpointer) Checkpoint(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store.Flush(ctx)
	doc := persist.Serialize(c.store.GetState())
	if c.last != nil && document.EqualIgnoringUI(c.last, doc) {
		return "", false, nil
	}

	now := c.clock.Now().UTC()
	id := uuid.NewString()
	key := KeyPrefix + now.Format("20060102T150405.000Z") + "_" + id
	state, err := json.Marshal(doc)
	if err != nil {
		return "", false, errors.WrapError(err, errors.CategoryStorage, "failed to encode checkpoint").Build()
	}
	data, err := json.Marshal(record{ID: id, SavedAt: now.UnixMilli(), State: state})
	if err != nil {
		return "", false, errors.WrapError(err, errors.CategoryStorage, "failed to encode checkpoint").Build()
	}
	if err := c.kv.Set(ctx, key, string(data)); err != nil {
		return "", false, errors.WrapError(err, errors.CategoryStorage, "failed to write checkpoint").
			WithContext("key", key).
			Build()
	}
	c.last = doc
	c.logger.Debug("Checkpoint written", logfields.Key(key), logfields.Bytes(len(data)))

	if err := c.prune(ctx); err != nil {
		c.logger.Warn("Failed to prune checkpoints", logfields.Error(err))
	}
	return key, true, nil
}

func (c *Checkpointer) prune(ctx context.Context) error {
	keys, err := List(ctx, c.kv)
	if err != nil {
		return err
	}
	for len(keys) > c.keep {
		if err := c.kv.Delete(ctx, keys[0]); err != nil {
			return err
		}
		keys = keys[1:]
	}
	return nil
}

// List returns the checkpoint keys in kv, oldest first.
func List(ctx context.Context, kv kvstore.Store) ([]string, error) {
	keys, err := kv.Keys(ctx, KeyPrefix)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to list checkpoints").Build()
	}
	return keys, nil
}

// Load reads the checkpoint stored under key.
func Load(ctx context.Context, kv kvstore.Store, key string) (*Checkpoint, error) {
	if !strings.HasPrefix(key, KeyPrefix) {
		key = KeyPrefix + key
	}
	raw, ok, err := kv.Get(ctx, key)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, "failed to read checkpoint").
			WithContext("key", key).
			Build()
	}
	if !ok {
		return nil, errors.NewError(errors.CategoryNotFound, "checkpoint not found").
			WithContext("key", key).
			Build()
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "checkpoint is corrupt").
			WithContext("key", key).
			Build()
	}
	doc, err := document.FromJSON(rec.State)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "checkpoint is corrupt").
			WithContext("key", key).
			Build()
	}
	return &Checkpoint{Key: key, ID: rec.ID, SavedAt: time.UnixMilli(rec.SavedAt).UTC(), Document: doc}, nil
}
