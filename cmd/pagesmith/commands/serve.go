package commands

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/pagesmith/internal/autosave"
	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/packager"
	"git.home.luguber.info/inful/pagesmith/internal/preview"
	"git.home.luguber.info/inful/pagesmith/internal/reducer"
)

// ServeCmd serves a live preview of the stored project.
type ServeCmd struct {
	Addr       string        `help:"Listen address (defaults to preview.addr from the config)"`
	Watch      string        `help:"Project JSON file to follow; every valid write is loaded into the session"`
	Checkpoint time.Duration `help:"Checkpoint interval (defaults to persistence.checkpoint_interval; 0 disables)"`
}

func (c *ServeCmd) Run(g *Global) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewPrometheusRecorder(reg)

	s, err := openSession(ctx, g, rec)
	if err != nil {
		return err
	}
	defer s.Close(context.Background())

	interval := g.Config.Persistence.CheckpointInterval.Std()
	if c.Checkpoint > 0 {
		interval = c.Checkpoint
	}
	if interval > 0 {
		cp, err := autosave.New(s.store, s.kv,
			autosave.WithKeep(g.Config.Persistence.CheckpointKeep),
			autosave.WithLogger(g.Logger))
		if err != nil {
			return err
		}
		if err := cp.Start(ctx, interval); err != nil {
			return err
		}
		defer func() {
			if err := cp.Stop(context.Background()); err != nil {
				g.Logger.Warn("Final checkpoint failed", logfields.Error(err))
			}
		}()
	}

	watch := c.Watch
	if watch != "" {
		w, err := preview.NewWatcher(watch, func(doc *document.Document) {
			s.store.Dispatch(reducer.Action{Type: reducer.LoadState, Payload: doc})
		}, g.Logger)
		if err != nil {
			return err
		}
		go func() { _ = w.Run(ctx) }()
	}

	srv := preview.New(s.store,
		preview.WithLogger(g.Logger),
		preview.WithRegistry(reg),
		preview.WithPackager(packager.New(packager.WithLogger(g.Logger), packager.WithRecorder(rec))))
	return srv.ListenAndServe(ctx, firstNonEmpty(c.Addr, g.Config.Preview.Addr))
}
