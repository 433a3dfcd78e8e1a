package commands

import (
	"context"
	"encoding/json"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/autosave"
	"git.home.luguber.info/inful/pagesmith/internal/compiler"
	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// InspectCmd prints a summary of the stored project.
type InspectCmd struct {
	JSON bool `name:"json" help:"Print the summary as JSON"`
}

type sectionSummary struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Variant string `json:"variant"`
	Enabled bool   `json:"enabled"`
}

type summary struct {
	SiteName    string           `json:"siteName"`
	Mode        string           `json:"mode"`
	Backend     string           `json:"backend"`
	SavedAt     string           `json:"savedAt,omitempty"`
	Sections    []sectionSummary `json:"sections"`
	Problems    []string         `json:"problems,omitempty"`
	Checkpoints int              `json:"checkpoints"`
}

func (i *InspectCmd) Run(g *Global) error {
	ctx := context.Background()
	s, err := loadStored(ctx, g)
	if err != nil {
		return err
	}
	defer func() { _ = s.kv.Close() }()

	doc := s.store.GetState()
	sum := summary{
		SiteName: doc.Settings.SiteName,
		Mode:     string(doc.Mode),
		Backend:  string(g.Config.Storage.Backend),
		Problems: doc.Validate(),
	}
	if meta, ok := s.repo.Meta(ctx); ok {
		sum.SavedAt = time.UnixMilli(meta.SavedAt).UTC().Format(time.RFC3339)
	}
	if keys, err := autosave.List(ctx, s.kv); err == nil {
		sum.Checkpoints = len(keys)
	}
	for _, sec := range doc.OrderedSections() {
		sum.Sections = append(sum.Sections, sectionSummary{
			ID:      sec.ID,
			Type:    sec.Type,
			Variant: compiler.ResolveVariant(compiler.SectionType(document.NormalizeSectionType(sec.Type)), sec.Variant),
			Enabled: sec.Enabled,
		})
	}

	if i.JSON {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return errors.WrapError(err, errors.CategoryInternal, "encode summary").Build()
		}
		printf(g, "%s\n", data)
	} else {
		printSummary(g, sum)
	}
	if len(sum.Problems) > 0 {
		return errors.DocumentError("stored project violates its invariants").
			WithContext("problems", len(sum.Problems)).
			Build()
	}
	return nil
}

func printSummary(g *Global, sum summary) {
	printf(g, "Site:        %s\n", sum.SiteName)
	printf(g, "Mode:        %s\n", sum.Mode)
	printf(g, "Storage:     %s", sum.Backend)
	if sum.SavedAt != "" {
		printf(g, " (saved %s)", sum.SavedAt)
	}
	printf(g, "\nCheckpoints: %d\n", sum.Checkpoints)
	printf(g, "Sections:    %d\n", len(sum.Sections))
	for _, sec := range sum.Sections {
		state := "on"
		if !sec.Enabled {
			state = "off"
		}
		printf(g, "  %-16s %-14s %-14s %s\n", sec.ID, sec.Type, sec.Variant, state)
	}
	for _, p := range sum.Problems {
		printf(g, "problem: %s\n", p)
	}
}
