package persist

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
)

// Keys of the legacy layout, relative to LegacyPrefix.
const (
	legacyTheme      = "builderTheme"
	legacyComponents = "components"
	legacyOrder      = "order"
	legacySettings   = "settings"
)

// legacyTypes folds component types that were renamed.
var legacyTypes = map[string]string{
	"trust":     "trustbar",
	"stickyCta": "cta",
}

// MigrateLegacy rebuilds a document from the legacy per-key layout and saves
// it as an envelope. Legacy keys are read, never written. It reports false when
// no legacy key exists.
func (r *Repository) MigrateLegacy(ctx context.Context) (*document.Document, bool) {
	if !r.Available(ctx) {
		return nil, false
	}

	theme, hasTheme := r.get(ctx, LegacyPrefix+legacyTheme)
	components := r.legacyJSON(ctx, legacyComponents)
	order := r.legacyJSON(ctx, legacyOrder)
	settings := r.legacyJSON(ctx, legacySettings)
	if components == nil && order == nil && settings == nil && !hasTheme {
		return nil, false
	}

	compMap, _ := components.(map[string]any)
	settingsMap, _ := settings.(map[string]any)

	doc := document.Defaults()
	counters := map[string]int{}
	for _, legacyType := range legacySequence(order, compMap) {
		sectionType := legacyType
		if folded, ok := legacyTypes[legacyType]; ok {
			sectionType = folded
		}
		counters[sectionType]++
		id := sectionType + "-" + strconv.Itoa(counters[sectionType])

		comp, hasComp := compMap[legacyType].(map[string]any)
		enabled := true
		if hasComp {
			enabled = truthy(comp["enabled"])
		}
		doc.Layout.Sections = append(doc.Layout.Sections, document.Section{
			ID: id, Type: sectionType, Variant: "default", Enabled: enabled,
		})
		doc.Layout.Order = append(doc.Layout.Order, id)
		doc.Layout.Spacing[id] = document.DefaultSpacing
		if data, ok := comp["data"].(map[string]any); ok {
			doc.Content[id] = document.NormalizeFields(data)
		}
	}

	doc.Brand.Font = "system"
	if s := stringField(settingsMap, "primaryColor"); s != "" {
		doc.Brand.Colors.Primary = s
	}
	if s := stringField(settingsMap, "accentColor"); s != "" {
		doc.Brand.Colors.Accent = s
	}
	if s := stringField(settingsMap, "fontStack"); s != "" {
		doc.Brand.Font = s
	}
	if s := stringField(settingsMap, "siteName"); s != "" {
		doc.Settings.SiteName = s
	}
	doc.Settings.SiteDescription = stringField(settingsMap, "siteDescription")
	doc.Settings.Features.DarkModeToggle = truthy(settingsMap["darkModeToggle"])
	doc.UI.BuilderTheme = legacyBuilderTheme(theme)
	doc.Reconcile()

	r.logger.Info("Migrated legacy document",
		logfields.Source(string(SourceLegacy)),
		"sections", len(doc.Layout.Sections))
	r.Save(ctx, doc)
	return doc, true
}

// legacyJSON returns the decoded value of a legacy key, or nil when the key is
// missing or does not hold valid JSON.
func (r *Repository) legacyJSON(ctx context.Context, name string) any {
	raw, ok := r.get(ctx, LegacyPrefix+name)
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		r.logger.Warn("Ignoring corrupt legacy key", logfields.Key(LegacyPrefix+name), logfields.Error(err))
		return nil
	}
	return v
}

// legacySequence returns the legacy component types in display order: the
// stored order list, or the component names sorted when no list exists.
func legacySequence(order any, components map[string]any) []string {
	if list, ok := order.([]any); ok {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	out := make([]string, 0, len(components))
	for name := range components {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func legacyBuilderTheme(raw string) string {
	if raw == "" {
		return document.ThemeLight
	}
	var decoded any
	value := raw
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		s, ok := decoded.(string)
		if !ok {
			return document.ThemeLight
		}
		value = s
	}
	if value == document.ThemeDark {
		return document.ThemeDark
	}
	return document.ThemeLight
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// truthy mirrors loose boolean coercion of decoded JSON values.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	}
	return true
}
