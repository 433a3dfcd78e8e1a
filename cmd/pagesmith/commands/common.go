package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/kvstore"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
	"git.home.luguber.info/inful/pagesmith/internal/persist"
	"git.home.luguber.info/inful/pagesmith/internal/reducer"
	"git.home.luguber.info/inful/pagesmith/internal/store"
)

// Global carries state shared by every subcommand once flags are parsed.
type Global struct {
	Logger *slog.Logger
	Config *config.Config
	Out    io.Writer
}

// CLI definition & global flags.
type CLI struct {
	Config    string           `short:"c" help:"Configuration file path" default:"pagesmith.yaml" type:"path"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	LogFormat string           `name:"log-format" help:"Log output format (text or json); overrides the config file"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`

	Init        InitCmd        `cmd:"" help:"Write a configuration file and an empty project"`
	Apply       ApplyCmd       `cmd:"" help:"Apply JSON-lines actions to the stored project"`
	Export      ExportCmd      `cmd:"" help:"Package the project as a deployable site"`
	PreviewHTML PreviewHTMLCmd `cmd:"" name:"preview-html" help:"Write a single-file HTML preview"`
	Palette     PaletteCmd     `cmd:"" help:"Extract a color palette from an image"`
	Inspect     InspectCmd     `cmd:"" help:"Summarize the stored project and check its invariants"`
	Migrate     MigrateCmd     `cmd:"" help:"Upgrade a legacy per-key project into the current format"`
	Restore     RestoreCmd     `cmd:"" help:"Load a backup, export archive or checkpoint into storage"`
	Serve       ServeCmd       `cmd:"" help:"Serve a live preview that rebuilds on every change"`
	VersionCmd  VersionCmd     `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing: load configuration and set up logging once.
func (c *CLI) AfterApply(g *Global) error {
	cfg, err := config.LoadOrDefault(c.Config)
	if err != nil {
		// Logging is not configured yet; fall back to defaults so the error is still reported.
		g.Logger = slog.Default()
		return err
	}

	level := cfg.Logging.Level.Slog()
	if c.Verbose {
		level = slog.LevelDebug
	}
	format := cfg.Logging.Format
	if c.LogFormat != "" {
		format = config.NormalizeLogFormat(c.LogFormat)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	g.Logger = logger
	g.Config = cfg
	if g.Out == nil {
		g.Out = os.Stdout
	}
	return nil
}

// openStorage opens the configured backend, creating the parent directory of
// a SQLite database when needed.
func openStorage(cfg *config.Config) (kvstore.Store, error) {
	kv := cfg.KVConfig()
	if kv.Backend == kvstore.BackendSQLite && kv.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(kv.Path), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create storage directory").
				WithContext("path", kv.Path).
				Build()
		}
	}
	return kvstore.Open(kv)
}

// session is a booted store persisting through the configured backend.
type session struct {
	kv    kvstore.Store
	repo  *persist.Repository
	store *store.Store
}

// openSession boots a store from storage. A nil recorder records nothing.
func openSession(ctx context.Context, g *Global, rec metrics.Recorder) (*session, error) {
	kv, err := openStorage(g.Config)
	if err != nil {
		return nil, err
	}
	repo := persist.NewRepository(kv, persist.WithLogger(g.Logger), persist.WithRecorder(rec))
	st := store.Boot(ctx, repo, storeOptions(g, rec)...)
	return &session{kv: kv, repo: repo, store: st}, nil
}

func storeOptions(g *Global, rec metrics.Recorder) []store.Option {
	cfg := g.Config
	return []store.Option{
		store.WithHistoryLimit(cfg.History.Limit),
		store.WithSaveDebounce(cfg.Persistence.Debounce.Std()),
		store.WithPolicy(reducer.WithCoalesceWindow(reducer.DefaultPolicy, cfg.History.CoalesceWindow.Std())),
		store.WithLogger(g.Logger),
		store.WithRecorder(rec),
	}
}

// Close flushes pending saves and releases the backend.
func (s *session) Close(ctx context.Context) {
	s.store.Close(ctx)
	if err := s.kv.Close(); err != nil {
		slog.Warn("Failed to close storage", logfields.Error(err))
	}
}

// loadStored reads the stored document without booting a store.
func loadStored(ctx context.Context, g *Global) (*session, error) {
	kv, err := openStorage(g.Config)
	if err != nil {
		return nil, err
	}
	repo := persist.NewRepository(kv, persist.WithLogger(g.Logger))
	doc, _ := persist.LoadOrDefault(ctx, repo)
	st := store.New(store.WithInitial(doc), store.WithLogger(g.Logger))
	return &session{kv: kv, repo: repo, store: st}, nil
}

func printf(g *Global, format string, args ...any) {
	_, _ = fmt.Fprintf(g.Out, format, args...)
}
