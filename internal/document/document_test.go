package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *Document {
	doc := Defaults()
	doc.Layout.Sections = []Section{
		{ID: "hero-1", Type: "hero", Variant: "split", Enabled: true},
		{ID: "faq-2", Type: "faq", Variant: "default", Enabled: false},
	}
	doc.Layout.Order = []string{"faq-2", "hero-1"}
	doc.Layout.Spacing = map[string]Spacing{"hero-1": {PT: 80, PB: 120}}
	doc.Content = Content{
		"hero-1": {"headline": "Hallo", "buttons": []any{map[string]any{"label": "Los"}}},
	}
	doc.UI.ActiveSection = "hero-1"
	return doc
}

func TestNormalizeSectionType(t *testing.T) {
	assert.Equal(t, "trustbar", NormalizeSectionType(" Trust "))
	assert.Equal(t, "cta", NormalizeSectionType("stickyCta"))
	assert.Equal(t, "services", NormalizeSectionType("SERVICES"))
}

func TestNextSectionID(t *testing.T) {
	doc := Defaults()
	assert.Equal(t, "hero-1", NextSectionID(doc, "hero"))

	doc.Layout.Sections = []Section{
		{ID: "hero-1", Type: "hero"},
		{ID: "hero-7", Type: "hero"},
		{ID: "services-3", Type: "services"},
		{ID: "trustbar-2", Type: "trust"},
	}
	assert.Equal(t, "hero-8", NextSectionID(doc, "hero"))
	assert.Equal(t, "services-4", NextSectionID(doc, "Services"))
	assert.Equal(t, "trustbar-3", NextSectionID(doc, "trust"))
}

func TestNextSectionIDSkipsIDsTakenByOtherTypes(t *testing.T) {
	doc := Defaults()
	doc.Layout.Sections = []Section{
		{ID: "hero-1", Type: "services"},
		{ID: "hero-2", Type: "faq"},
		{ID: "hero-4", Type: "cta"},
	}
	assert.Equal(t, "hero-3", NextSectionID(doc, "hero"))

	doc.Layout.Sections = append(doc.Layout.Sections, Section{ID: "hero-3", Type: "hero"})
	assert.Equal(t, "hero-5", NextSectionID(doc, "hero"))
}

func TestReconcileOrder(t *testing.T) {
	sections := []Section{{ID: "a-1"}, {ID: "b-1"}, {ID: "c-1"}}
	order := []string{"c-1", "ghost-1", "c-1", "a-1"}

	got := ReconcileOrder(sections, order)

	assert.Equal(t, []string{"c-1", "a-1", "b-1"}, got)
	assert.Equal(t, []string{"c-1", "ghost-1", "c-1", "a-1"}, order, "input must not be modified")
}

func TestReconcilePrunesDanglingReferences(t *testing.T) {
	doc := sampleDocument()
	doc.Layout.Spacing["gone-1"] = Spacing{PT: 8}
	doc.Content["gone-1"] = map[string]any{"x": 1.0}
	doc.UI.ActiveSection = "gone-1"

	doc.Reconcile()

	assert.Empty(t, doc.Validate())
	assert.NotContains(t, doc.Layout.Spacing, "gone-1")
	assert.NotContains(t, doc.Content, "gone-1")
	assert.Empty(t, doc.UI.ActiveSection)
}

func TestValidateReportsViolations(t *testing.T) {
	doc := sampleDocument()
	doc.Layout.Order = []string{"hero-1", "hero-1", "nope-1"}
	doc.Content["nope-1"] = map[string]any{}

	problems := doc.Validate()

	assert.Contains(t, problems, `order lists "hero-1" twice`)
	assert.Contains(t, problems, `order references unknown section "nope-1"`)
	assert.Contains(t, problems, `content keyed by unknown section "nope-1"`)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := sampleDocument()
	cp := orig.Clone()
	require.True(t, Equal(orig, cp))

	cp.Layout.Sections[0].Variant = "centered"
	cp.Layout.Order[0] = "hero-1"
	cp.Layout.Spacing["hero-1"] = Spacing{PT: 0, PB: 0}
	cp.Content["hero-1"]["headline"] = "Changed"
	cp.Content["hero-1"]["buttons"].([]any)[0].(map[string]any)["label"] = "Changed"

	assert.Equal(t, "split", orig.Layout.Sections[0].Variant)
	assert.Equal(t, "faq-2", orig.Layout.Order[0])
	assert.Equal(t, Spacing{PT: 80, PB: 120}, orig.Layout.Spacing["hero-1"])
	assert.Equal(t, "Hallo", orig.Content["hero-1"]["headline"])
	assert.Equal(t, "Los", orig.Content["hero-1"]["buttons"].([]any)[0].(map[string]any)["label"])
}

func TestEqualTreatsNilValueAsAbsentKey(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.Content["hero-1"]["subline"] = nil

	assert.True(t, Equal(a, b))
	assert.True(t, Equal(b, a))

	b.Content["hero-1"]["subline"] = ""
	assert.False(t, Equal(a, b), "empty string is a value, not absence")
}

func TestEqualNumericAndOrderSemantics(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	a.Content["hero-1"]["count"] = 3
	b.Content["hero-1"]["count"] = 3.0
	assert.True(t, Equal(a, b))

	b.Layout.Order = []string{"hero-1", "faq-2"}
	assert.False(t, Equal(a, b))
}

func TestEqualIgnoringUI(t *testing.T) {
	a := sampleDocument()
	b := sampleDocument()
	b.UI.BuilderTheme = ThemeDark
	b.UI.ActiveSection = ""

	assert.False(t, Equal(a, b))
	assert.True(t, EqualIgnoringUI(a, b))
}

func TestDeepMerge(t *testing.T) {
	base := map[string]any{
		"title": "A",
		"cta":   map[string]any{"label": "Go", "href": "#x"},
		"items": []any{"one", "two"},
	}
	patch := map[string]any{
		"cta":   map[string]any{"label": "Start"},
		"items": []any{"three"},
	}

	got := DeepMerge(base, patch)

	assert.Equal(t, map[string]any{
		"title": "A",
		"cta":   map[string]any{"label": "Start", "href": "#x"},
		"items": []any{"three"},
	}, got)
	assert.Equal(t, "Go", base["cta"].(map[string]any)["label"], "base must not change")

	patch["items"].([]any)[0] = "mutated"
	assert.Equal(t, "three", got["items"].([]any)[0], "result must not alias patch")
}

func TestNormalizeValue(t *testing.T) {
	type card struct {
		Title string `json:"title"`
	}
	got := NormalizeValue(map[string]any{
		"n":     7,
		"list":  []string{"a", "b"},
		"cards": []card{{Title: "x"}},
		"ptr":   (*string)(nil),
	})

	assert.Equal(t, map[string]any{
		"n":     7.0,
		"list":  []any{"a", "b"},
		"cards": []any{map[string]any{"title": "x"}},
		"ptr":   nil,
	}, got)
}

func TestFromJSONAppliesDefaultsAndReconciles(t *testing.T) {
	raw := []byte(`{
		"layout": {
			"sections": [{"id": "hero-1", "type": "Hero", "enabled": true}],
			"order": ["ghost-1"]
		},
		"brand": {"colors": {"primary": "#112233"}},
		"content": {"ghost-1": {"x": 1}, "hero-1": {"headline": "Hi"}},
		"settings": {"siteName": "Acme"}
	}`)

	doc, err := FromJSON(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"hero-1"}, doc.Layout.Order)
	assert.Equal(t, "hero", doc.Layout.Sections[0].Type)
	assert.Equal(t, "default", doc.Layout.Sections[0].Variant)
	assert.Equal(t, "#112233", doc.Brand.Colors.Primary)
	assert.Equal(t, DefaultColors.Accent, doc.Brand.Colors.Accent)
	assert.Equal(t, "Acme", doc.Settings.SiteName)
	assert.Equal(t, "de", doc.Settings.Language)
	assert.True(t, doc.Settings.Features.StickyHeader)
	assert.Equal(t, ModeStructure, doc.Mode)
	assert.NotContains(t, doc.Content, "ghost-1")
	assert.Empty(t, doc.Validate())

	_, err = FromJSON([]byte(`{"layout": [`))
	assert.Error(t, err)
	_, err = FromJSON([]byte(`null`))
	assert.Error(t, err)
}
