package reducer

import (
	"encoding/json"
	"math"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

// Reduce applies action to doc and returns the resulting document.
//
// Reduce never modifies doc. Unknown action types, Undo/Redo (handled by the
// store) and actions whose guards reject the payload return doc itself, so
// callers can detect a no-op by pointer identity.
func Reduce(doc *document.Document, action Action) *document.Document {
	if doc == nil {
		return nil
	}
	switch action.Type {
	case SetMode:
		return withClone(doc, func(next *document.Document) {
			next.Mode = document.NormalizeMode(stringPayload(action.Payload))
		})
	case LoadState:
		return loadState(doc, action.Payload)
	case ResetProject:
		next := document.Defaults()
		if doc.UI.BuilderTheme != "" {
			next.UI.BuilderTheme = doc.UI.BuilderTheme
		}
		return next
	case AddSection:
		p, ok := newSectionPayload(action.Payload)
		if !ok {
			return doc
		}
		return addSection(doc, p)
	case AddSectionsBulk:
		items, _ := action.Payload.([]NewSection)
		next := doc
		for _, item := range items {
			next = addSection(next, item)
		}
		return next
	case RemoveSection:
		return removeSection(doc, idPayload(action.Payload))
	case ToggleSection:
		id := idPayload(action.Payload)
		if !doc.HasSection(id) {
			return doc
		}
		return structural(doc, func(next *document.Document) {
			for i := range next.Layout.Sections {
				if next.Layout.Sections[i].ID == id {
					next.Layout.Sections[i].Enabled = !next.Layout.Sections[i].Enabled
				}
			}
		})
	case SelectSection:
		id := idPayload(action.Payload)
		if id != "" && !doc.HasSection(id) {
			return doc
		}
		return withClone(doc, func(next *document.Document) { next.UI.ActiveSection = id })
	case UpdateSection:
		p, ok := action.Payload.(SectionPatch)
		if !ok || !doc.HasSection(p.ID) {
			return doc
		}
		return updateSection(doc, p)
	case UpdateSectionVariant:
		p, ok := action.Payload.(SectionVariant)
		if !ok || p.ID == "" || p.Variant == "" {
			return doc
		}
		return Reduce(doc, Action{Type: UpdateSection, Payload: SectionPatch{ID: p.ID, Variant: &p.Variant}})
	case Reorder:
		order, ok := action.Payload.([]string)
		if !ok {
			return doc
		}
		return structural(doc, func(next *document.Document) {
			next.Layout.Order = append([]string(nil), order...)
		})
	case MoveSection:
		return moveSection(doc, action.Payload)
	case UpdateSpacing:
		p, ok := action.Payload.(SpacingPatch)
		if !ok || !doc.HasSection(p.ID) {
			return doc
		}
		return updateSpacing(doc, p)
	case ApplySpacingPreset:
		p, ok := action.Payload.(SpacingPresetRef)
		if !ok {
			return doc
		}
		preset, known := SpacingPresets[p.Preset]
		if !known || !doc.HasSection(p.ID) {
			return doc
		}
		pt, pb := float64(preset.PT), float64(preset.PB)
		return updateSpacing(doc, SpacingPatch{ID: p.ID, PT: &pt, PB: &pb})
	case SetLogo:
		return withClone(doc, func(next *document.Document) { next.Brand.Logo = stringPayload(action.Payload) })
	case SetColors:
		p, ok := action.Payload.(ColorsPatch)
		if !ok {
			return doc
		}
		return withClone(doc, func(next *document.Document) { applyColors(&next.Brand.Colors, p) })
	case SetFont:
		return withClone(doc, func(next *document.Document) {
			next.Brand.Font = orDefault(stringPayload(action.Payload), "system")
		})
	case SetRadius:
		return withClone(doc, func(next *document.Document) {
			next.Brand.Radius = orDefault(stringPayload(action.Payload), "rounded")
		})
	case UpdateContent:
		p, ok := action.Payload.(ContentPatch)
		if !ok || !doc.HasSection(p.ID) {
			return doc
		}
		return withClone(doc, func(next *document.Document) {
			next.Content[p.ID] = document.DeepMerge(next.Content[p.ID], document.NormalizeFields(p.Values))
		})
	case ReplaceContent:
		p, ok := action.Payload.(ContentReplacement)
		if !ok || !doc.HasSection(p.ID) {
			return doc
		}
		return withClone(doc, func(next *document.Document) {
			value := document.NormalizeFields(p.Value)
			if value == nil {
				value = map[string]any{}
			}
			next.Content[p.ID] = value
		})
	case RemoveContent:
		id := idPayload(action.Payload)
		if _, ok := doc.Content[id]; !ok {
			return doc
		}
		return withClone(doc, func(next *document.Document) { delete(next.Content, id) })
	case UpdateSettings:
		p, ok := action.Payload.(SettingsPatch)
		if !ok {
			return doc
		}
		return withClone(doc, func(next *document.Document) { applySettings(&next.Settings, p) })
	case UpdateConsent:
		p, ok := action.Payload.(ConsentPatch)
		if !ok {
			return doc
		}
		return withClone(doc, func(next *document.Document) { applyConsent(&next.Settings.Consent, p) })
	case UpdateFeatures:
		p, ok := action.Payload.(FeaturesPatch)
		if !ok {
			return doc
		}
		return withClone(doc, func(next *document.Document) { applyFeatures(&next.Settings.Features, p) })
	case ToggleGrid:
		return withClone(doc, func(next *document.Document) { next.UI.ShowGrid = !next.UI.ShowGrid })
	case Toggle8px:
		return withClone(doc, func(next *document.Document) { next.UI.Show8pxRaster = !next.UI.Show8pxRaster })
	case SetSidebarTab:
		return withClone(doc, func(next *document.Document) {
			next.UI.SidebarTab = orDefault(stringPayload(action.Payload), "sections")
		})
	case SetBuilderTheme:
		return withClone(doc, func(next *document.Document) {
			next.UI.BuilderTheme = document.ThemeLight
			if stringPayload(action.Payload) == document.ThemeDark {
				next.UI.BuilderTheme = document.ThemeDark
			}
		})
	case SetActiveElementPath:
		return withClone(doc, func(next *document.Document) { next.UI.ActiveElementPath = stringPayload(action.Payload) })
	default:
		return doc
	}
}

func withClone(doc *document.Document, mutate func(next *document.Document)) *document.Document {
	next := doc.Clone()
	mutate(next)
	return next
}

// structural applies a layout mutation and re-runs reconciliation.
func structural(doc *document.Document, mutate func(next *document.Document)) *document.Document {
	return withClone(doc, func(next *document.Document) {
		mutate(next)
		next.Reconcile()
	})
}

func addSection(doc *document.Document, p NewSection) *document.Document {
	sectionType := document.NormalizeSectionType(p.Type)
	if sectionType == "" {
		return doc
	}
	id := strings.TrimSpace(p.ID)
	if id == "" || doc.HasSection(id) {
		id = document.NextSectionID(doc, sectionType)
	}
	section := document.Section{
		ID:      id,
		Type:    sectionType,
		Variant: orDefault(p.Variant, "default"),
		Enabled: p.Enabled == nil || *p.Enabled,
	}
	return structural(doc, func(next *document.Document) {
		next.Layout.Sections = append(next.Layout.Sections, section)
		next.Layout.Order = append(next.Layout.Order, id)
		if _, ok := next.Layout.Spacing[id]; !ok {
			next.Layout.Spacing[id] = document.DefaultSpacing
		}
		next.UI.ActiveSection = id
	})
}

func removeSection(doc *document.Document, id string) *document.Document {
	if !doc.HasSection(id) {
		return doc
	}
	return structural(doc, func(next *document.Document) {
		sections := next.Layout.Sections[:0]
		for _, s := range next.Layout.Sections {
			if s.ID != id {
				sections = append(sections, s)
			}
		}
		next.Layout.Sections = sections
		delete(next.Layout.Spacing, id)
		delete(next.Content, id)
		if next.UI.ActiveSection == id {
			next.UI.ActiveSection = ""
		}
	})
}

func updateSection(doc *document.Document, p SectionPatch) *document.Document {
	return structural(doc, func(next *document.Document) {
		for i := range next.Layout.Sections {
			s := &next.Layout.Sections[i]
			if s.ID != p.ID {
				continue
			}
			if p.Type != nil && document.NormalizeSectionType(*p.Type) != "" {
				s.Type = document.NormalizeSectionType(*p.Type)
			}
			if p.Variant != nil && *p.Variant != "" {
				s.Variant = *p.Variant
			}
			if p.Enabled != nil {
				s.Enabled = *p.Enabled
			}
		}
	})
}

func moveSection(doc *document.Document, payload any) *document.Document {
	m, ok := payload.(Move)
	n := len(doc.Layout.Order)
	if !ok || m.From < 0 || m.From >= n || m.To < 0 || m.To >= n || m.From == m.To {
		return doc
	}
	return structural(doc, func(next *document.Document) {
		order := next.Layout.Order
		moved := order[m.From]
		order = append(order[:m.From], order[m.From+1:]...)
		order = append(order[:m.To], append([]string{moved}, order[m.To:]...)...)
		next.Layout.Order = order
	})
}

func updateSpacing(doc *document.Document, p SpacingPatch) *document.Document {
	prev := doc.SpacingFor(p.ID)
	pt, pb := float64(prev.PT), float64(prev.PB)
	if p.PT != nil {
		pt = clamp(*p.PT, document.MinPadding, document.MaxPadding)
	}
	if p.PB != nil {
		pb = clamp(*p.PB, document.MinPadding, document.MaxPadding)
	}
	sp := document.Spacing{PT: snap(pt), PB: snap(pb)}
	return structural(doc, func(next *document.Document) { next.Layout.Spacing[p.ID] = sp })
}

// clamp maps non-finite input to lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// snap rounds to the nearest multiple of the padding grid, halves rounding up.
func snap(v float64) int {
	return int(math.Floor(v/document.PaddingGrid+0.5)) * document.PaddingGrid
}

func loadState(doc *document.Document, payload any) *document.Document {
	var next *document.Document
	switch p := payload.(type) {
	case *document.Document:
		if p == nil {
			return doc
		}
		next = p.Clone()
		next.Mode = document.NormalizeMode(string(next.Mode))
		for id, fields := range next.Content {
			next.Content[id] = document.NormalizeFields(fields)
		}
		next.Reconcile()
	case json.RawMessage:
		loaded, err := document.FromJSON(p)
		if err != nil {
			return doc
		}
		next = loaded
	case []byte:
		loaded, err := document.FromJSON(p)
		if err != nil {
			return doc
		}
		next = loaded
	default:
		return doc
	}
	return next
}

func applyColors(c *document.Colors, p ColorsPatch) {
	set(&c.Primary, p.Primary)
	set(&c.Accent, p.Accent)
	set(&c.Background, p.Background)
	set(&c.Surface, p.Surface)
	set(&c.Text, p.Text)
	set(&c.TextLight, p.TextLight)
	set(&c.Border, p.Border)
}

func applySettings(s *document.Settings, p SettingsPatch) {
	set(&s.SiteName, p.SiteName)
	set(&s.SiteDescription, p.SiteDescription)
	set(&s.Favicon, p.Favicon)
	set(&s.Language, p.Language)
	if p.Consent != nil {
		applyConsent(&s.Consent, *p.Consent)
	}
	if p.Features != nil {
		applyFeatures(&s.Features, *p.Features)
	}
	if p.Legal != nil {
		set(&s.Legal.Company, p.Legal.Company)
		set(&s.Legal.Address, p.Legal.Address)
		set(&s.Legal.Email, p.Legal.Email)
		set(&s.Legal.Phone, p.Legal.Phone)
	}
}

func applyConsent(c *document.Consent, p ConsentPatch) {
	set(&c.Enabled, p.Enabled)
	if p.Analytics != nil {
		c.Analytics = normalizeAnalytics(*p.Analytics)
	}
	set(&c.PrivacyLink, p.PrivacyLink)
	if p.Categories != nil {
		set(&c.Categories.Necessary, p.Categories.Necessary)
		set(&c.Categories.Statistics, p.Categories.Statistics)
		set(&c.Categories.Marketing, p.Categories.Marketing)
	}
}

func applyFeatures(f *document.Features, p FeaturesPatch) {
	set(&f.DarkModeToggle, p.DarkModeToggle)
	set(&f.StickyHeader, p.StickyHeader)
	set(&f.SmoothScroll, p.SmoothScroll)
}

func normalizeAnalytics(raw string) string {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case document.AnalyticsGA4, document.AnalyticsMatomo:
		return v
	default:
		return document.AnalyticsNone
	}
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func stringPayload(p any) string {
	switch v := p.(type) {
	case string:
		return v
	case document.Mode:
		return string(v)
	case *string:
		if v != nil {
			return *v
		}
	}
	return ""
}

func idPayload(p any) string {
	return strings.TrimSpace(stringPayload(p))
}

func newSectionPayload(p any) (NewSection, bool) {
	switch v := p.(type) {
	case NewSection:
		return v, true
	case string:
		return NewSection{Type: v}, true
	}
	return NewSection{}, false
}
