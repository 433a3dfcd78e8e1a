package commands

import (
	"context"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/persist"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force bool   `help:"Overwrite existing configuration file and project"`
	Name  string `help:"Site name of the new project"`
}

func (i *InitCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	printf(g, "Initializing pagesmith project\n")
	printf(g, "Writing configuration to %s\n", root.Config)
	if err := config.Init(root.Config, i.Force); err != nil {
		printf(g, "Initialization failed\n")
		return err
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	g.Config = cfg

	kv, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()
	repo := persist.NewRepository(kv, persist.WithLogger(g.Logger))

	if doc, _ := repo.Load(ctx); doc != nil && !i.Force {
		printf(g, "Keeping existing project %q\n", doc.Settings.SiteName)
		return nil
	}
	doc := document.Defaults()
	if i.Name != "" {
		doc.Settings.SiteName = i.Name
	}
	if !repo.Save(ctx, doc) {
		return errors.StorageError("failed to save the new project").
			WithContext("backend", string(cfg.Storage.Backend)).
			Build()
	}
	printf(g, "initialized successfully\n")
	return nil
}
