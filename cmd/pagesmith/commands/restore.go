package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/autosave"
	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/packager"
	"git.home.luguber.info/inful/pagesmith/internal/persist"
)

// RestoreCmd replaces the stored project with a backup.
type RestoreCmd struct {
	File       string `arg:"" optional:"" help:"backup.json, <site>.json or an exported .zip"`
	Checkpoint string `help:"Restore the checkpoint with this key instead of a file"`
	List       bool   `help:"List stored checkpoints"`
}

func (r *RestoreCmd) Run(g *Global) error {
	ctx := context.Background()
	kv, err := openStorage(g.Config)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()

	if r.List {
		keys, err := autosave.List(ctx, kv)
		if err != nil {
			return err
		}
		for _, k := range keys {
			printf(g, "%s\n", strings.TrimPrefix(k, autosave.KeyPrefix))
		}
		return nil
	}

	var doc *document.Document
	switch {
	case r.Checkpoint != "":
		cp, err := autosave.Load(ctx, kv, r.Checkpoint)
		if err != nil {
			return err
		}
		doc = cp.Document
	case r.File != "":
		doc, err = readBackup(r.File)
		if err != nil {
			return err
		}
	default:
		return errors.ValidationError("nothing to restore: pass a file or --checkpoint").Build()
	}

	repo := persist.NewRepository(kv, persist.WithLogger(g.Logger))
	if !repo.Save(ctx, doc) {
		return errors.StorageError("failed to save the restored project").Build()
	}
	printf(g, "Restored %q with %d sections\n", doc.Settings.SiteName, len(doc.Layout.Sections))
	return nil
}

func readBackup(path string) (*document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "read backup").
			WithContext("path", path).
			Build()
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return packager.ReadArchive(bytes.NewReader(data), int64(len(data)))
	}
	return packager.RestoreBackup(data)
}
