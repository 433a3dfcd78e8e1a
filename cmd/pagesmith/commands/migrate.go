package commands

import (
	"context"

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/persist"
)

// MigrateCmd rebuilds the project from the legacy per-key layout, replacing
// any current envelope.
type MigrateCmd struct {
	ClearLegacy bool `name:"clear-legacy" help:"Delete the legacy keys after a successful migration"`
}

func (m *MigrateCmd) Run(g *Global) error {
	ctx := context.Background()
	kv, err := openStorage(g.Config)
	if err != nil {
		return err
	}
	defer func() { _ = kv.Close() }()
	repo := persist.NewRepository(kv, persist.WithLogger(g.Logger))

	doc, ok := repo.MigrateLegacy(ctx)
	if !ok {
		return errors.NewError(errors.CategoryNotFound, "no legacy project found").
			WithContext("prefix", persist.LegacyPrefix).
			Build()
	}
	printf(g, "Migrated %d sections into %s\n", len(doc.Layout.Sections), persist.StateKey)

	if m.ClearLegacy {
		keys, err := kv.Keys(ctx, persist.LegacyPrefix)
		if err != nil {
			return errors.WrapError(err, errors.CategoryStorage, "list legacy keys").Build()
		}
		for _, key := range keys {
			if err := kv.Delete(ctx, key); err != nil {
				return errors.WrapError(err, errors.CategoryStorage, "delete legacy key").
					WithContext("key", key).
					Build()
			}
		}
		printf(g, "Removed %d legacy keys\n", len(keys))
	}
	return nil
}
