package commands

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/packager"
)

// ExportCmd packages the stored project.
type ExportCmd struct {
	Output    string `short:"o" help:"Output directory (defaults to export.output from the config)"`
	Format    string `short:"f" help:"zip or dir (defaults to export.format from the config)"`
	SkipLegal bool   `name:"skip-legal" help:"Leave out privacy.html and impressum.html"`
	JSON      bool   `name:"json" help:"Also write the project as <site>.json"`
	Verify    bool   `help:"Fail when a page references a missing asset"`
}

func (e *ExportCmd) Run(g *Global) error {
	ctx := context.Background()
	s, err := loadStored(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = s.kv.Close() }()
	doc := s.store.GetState()

	cfg := g.Config
	out := firstNonEmpty(e.Output, cfg.Export.Output)
	format := cfg.Export.Format
	if e.Format != "" {
		format = config.ExportFormat(strings.ToLower(e.Format))
	}

	p := packager.New(packager.WithLogger(g.Logger))
	bundle, err := p.Package(ctx, doc, packager.Options{SkipLegal: e.SkipLegal || cfg.Export.SkipLegal})
	if err != nil {
		return err
	}
	if e.Verify {
		missing, err := packager.VerifyReferences(bundle)
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return errors.ExportError("pages reference missing assets").
				WithContext("missing", strings.Join(missing, ", ")).
				Build()
		}
	}

	if err := os.MkdirAll(out, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", out).
			Build()
	}

	var target string
	switch format {
	case config.ExportFormatDir:
		target = filepath.Join(out, bundle.Name)
		err = bundle.WriteDir(target)
	case config.ExportFormatZip:
		target = filepath.Join(out, bundle.ArchiveName())
		err = writeZip(bundle, target)
	default:
		return errors.ValidationError("unknown export format").WithContext("format", string(format)).Build()
	}
	if err != nil {
		return err
	}
	printf(g, "Exported %d files to %s\n", len(bundle.Files), target)

	if e.JSON {
		f, err := packager.ExportJSON(doc)
		if err != nil {
			return err
		}
		path := filepath.Join(out, f.Name)
		if err := writeFile(path, f.Data); err != nil {
			return err
		}
		printf(g, "Wrote %s\n", path)
	}
	return nil
}

// PreviewHTMLCmd writes the single-file preview.
type PreviewHTMLCmd struct {
	Output string `short:"o" help:"Output directory (defaults to export.output from the config)"`
}

func (p *PreviewHTMLCmd) Run(g *Global) error {
	ctx := context.Background()
	s, err := loadStored(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = s.kv.Close() }()

	f, err := packager.New(packager.WithLogger(g.Logger)).PreviewHTML(s.store.GetState(), time.Now())
	if err != nil {
		return err
	}
	out := firstNonEmpty(p.Output, g.Config.Export.Output)
	if err := os.MkdirAll(out, 0o750); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create output directory").
			WithContext("path", out).
			Build()
	}
	path := filepath.Join(out, f.Name)
	if err := writeFile(path, f.Data); err != nil {
		return err
	}
	printf(g, "Wrote %s\n", path)
	return nil
}

func writeZip(b *packager.Bundle, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "create archive").
			WithContext("path", path).
			Build()
	}
	if err := b.WriteZip(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "close archive").
			WithContext("path", path).
			Build()
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "write file").
			WithContext("path", path).
			Build()
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
