// Package packager assembles a compiled site into a distributable bundle:
// inline images become files, the compiler runs on the rewritten document and
// the result is written as a zip archive or a directory.
package packager

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/compiler"
	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

// BackupFile holds the indented JSON of the rewritten document.
const BackupFile = "backup.json"

// Options control packaging.
type Options struct {
	// Now stamps the compiled pages and the archive entries. Zero means the packager's clock.
	Now time.Time
	// SkipLegal leaves out privacy.html and impressum.html.
	SkipLegal bool
}

// Packager builds bundles.
type Packager struct {
	compiler *compiler.Compiler
	clock    clockwork.Clock
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures a Packager.
type Option func(*Packager)

func WithCompiler(c *compiler.Compiler) Option { return func(p *Packager) { p.compiler = c } }
func WithClock(c clockwork.Clock) Option       { return func(p *Packager) { p.clock = c } }
func WithLogger(l *slog.Logger) Option         { return func(p *Packager) { p.logger = l } }
func WithRecorder(r metrics.Recorder) Option   { return func(p *Packager) { p.recorder = r } }

// New returns a packager. Without WithCompiler it compiles with the same logger and recorder.
func New(opts ...Option) *Packager {
	p := &Packager{
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.recorder = metrics.OrNoop(p.recorder)
	if p.compiler == nil {
		p.compiler = compiler.New(
			compiler.WithClock(p.clock),
			compiler.WithLogger(p.logger),
			compiler.WithRecorder(p.recorder),
		)
	}
	return p
}

// Package builds a bundle with a default packager.
func Package(ctx context.Context, doc *document.Document, opts Options) (*Bundle, error) {
	return New().Package(ctx, doc, opts)
}

// Package extracts assets, compiles the rewritten document and collects the file set.
func (p *Packager) Package(ctx context.Context, doc *document.Document, opts Options) (*Bundle, error) {
	if doc == nil {
		return nil, errors.ExportError("document is nil").Build()
	}
	start := p.clock.Now()
	if opts.Now.IsZero() {
		opts.Now = start
	}

	rewritten, assets, skipped := Extract(doc)
	for _, s := range skipped {
		p.logger.Warn("Leaving undecodable image inline", logfields.Bytes(len(s)))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, err := p.compiler.Compile(rewritten, compiler.Options{
		Mode:      compiler.ModeProduction,
		Now:       opts.Now,
		SkipLegal: opts.SkipLegal,
	})
	if err != nil {
		return nil, err
	}
	backup, err := rewritten.MarshalIndent()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryExport, "encode backup").Build()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Bundle{
		ID:       uuid.New(),
		Name:     FilenameSafe(doc.Settings.SiteName),
		Modified: opts.Now,
		Document: rewritten,
		Assets:   assets,
	}
	b.add(compiler.IndexFile, []byte(out.HTML))
	b.add(compiler.StylesFile, []byte(out.CSS))
	b.add(compiler.ScriptFile, []byte(out.JS))
	for _, page := range out.Legal {
		b.add(page.Name, []byte(page.HTML))
	}
	for _, a := range assets {
		b.add(a.Path, a.Data)
	}
	b.add(BackupFile, backup)

	elapsed := p.clock.Since(start)
	p.recorder.AddExtractedAssets(len(assets))
	p.recorder.ObserveExportDuration(elapsed)
	p.logger.Info("Packaged site",
		slog.String("bundle", b.ID.String()),
		slog.Int("files", len(b.Files)),
		slog.Int("assets", len(assets)),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return b, nil
}

// PreviewHTML compiles doc into one self-contained HTML file. Inline images stay inline.
func (p *Packager) PreviewHTML(doc *document.Document, now time.Time) (File, error) {
	if doc == nil {
		return File{}, errors.ExportError("document is nil").Build()
	}
	out, err := p.compiler.Compile(doc, compiler.Options{Mode: compiler.ModePreview, Now: now})
	if err != nil {
		return File{}, err
	}
	return File{Name: FilenameSafe(doc.Settings.SiteName) + "-preview.html", Data: []byte(out.HTML)}, nil
}

// ExportJSON returns the document as an indented JSON file named after the site.
func ExportJSON(doc *document.Document) (File, error) {
	data, err := doc.MarshalIndent()
	if err != nil {
		return File{}, errors.WrapError(err, errors.CategoryExport, "encode document").Build()
	}
	return File{Name: FilenameSafe(doc.Settings.SiteName) + ".json", Data: data}, nil
}

// RestoreBackup decodes a backup.json payload into a reconciled document.
func RestoreBackup(data []byte) (*document.Document, error) {
	doc, err := document.FromJSON(data)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "backup is not a valid document").
			UserAction().Build()
	}
	return doc, nil
}
