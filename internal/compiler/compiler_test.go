package compiler

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

var fixedNow = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func addSection(doc *document.Document, id, typ, variant string, enabled bool, content map[string]any) {
	doc.Layout.Sections = append(doc.Layout.Sections, document.Section{ID: id, Type: typ, Variant: variant, Enabled: enabled})
	doc.Layout.Order = append(doc.Layout.Order, id)
	doc.Layout.Spacing[id] = document.DefaultSpacing
	if content != nil {
		doc.Content[id] = content
	}
}

func compile(t *testing.T, doc *document.Document, mode Mode) *Output {
	t.Helper()
	out, err := Compile(doc, Options{Mode: mode, Now: fixedNow})
	require.NoError(t, err)
	return out
}

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	root, err := html.Parse(strings.NewReader(src))
	require.NoError(t, err)
	return root
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := getAttr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

func byClass(class string) func(*html.Node) bool {
	return func(n *html.Node) bool { return hasClass(n, class) }
}

func byTag(tag string) func(*html.Node) bool {
	return func(n *html.Node) bool { return n.Data == tag }
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func TestCompileEmptyDocument(t *testing.T) {
	out := compile(t, document.Defaults(), ModeProduction)

	root := parse(t, out.HTML)
	assert.Empty(t, findAll(root, byClass("sb-section")))
	assert.Len(t, findAll(root, byClass("sb-site")), 1)
	assert.Len(t, findAll(root, func(n *html.Node) bool {
		id, _ := getAttr(n, "id")
		return id == "sb-cookie-root"
	}), 1)
	assert.True(t, strings.HasPrefix(out.HTML, "<!doctype html>"))
	assert.Contains(t, out.HTML, `<html lang="de">`)
	assert.Contains(t, out.HTML, `<title>Meine Website</title>`)
}

func TestCompileRendersEnabledSectionsInOrder(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "hero-1", "hero", "default", true, nil)
	addSection(doc, "faq-1", "faq", "accordion", false, nil)
	addSection(doc, "cta-1", "cta", "banner", true, nil)
	doc.Layout.Order = []string{"cta-1", "faq-1", "hero-1"}
	doc.Layout.Spacing["cta-1"] = document.Spacing{PT: 0, PB: 96}

	root := parse(t, compile(t, doc, ModeProduction).HTML)
	sections := findAll(root, byClass("sb-section"))
	require.Len(t, sections, 2)

	id, _ := getAttr(sections[0], "data-section-id")
	assert.Equal(t, "cta-1", id)
	style, _ := getAttr(sections[0], "style")
	assert.Equal(t, "padding-top:0px;padding-bottom:96px", style)
	assert.True(t, hasClass(sections[0], "sb-cta--banner"))

	id, _ = getAttr(sections[1], "data-section-id")
	assert.Equal(t, "hero-1", id)
	assert.True(t, hasClass(sections[1], "sb-hero--centered"), "default variant resolves to the first layout")
}

func TestCompileEscapesUserText(t *testing.T) {
	doc := document.Defaults()
	doc.Settings.SiteName = `A & "B"`
	addSection(doc, "hero-1", "hero", "centered", true, map[string]any{
		"headline": "<script>alert(1)</script>",
		"ctaHref":  "javascript:alert(1)",
	})

	out := compile(t, doc, ModeProduction)
	assert.NotContains(t, out.HTML, "<script>alert(1)</script>")

	root := parse(t, out.HTML)
	titles := findAll(root, byClass("sb-hero__title"))
	require.Len(t, titles, 1)
	assert.Equal(t, "<script>alert(1)</script>", textOf(titles[0]))

	primary := findAll(root, byClass("sb-btn--primary"))
	require.NotEmpty(t, primary)
	href, _ := getAttr(primary[0], "href")
	assert.NotContains(t, href, "javascript")
	assert.Contains(t, out.HTML, "<title>A &amp; &#34;B&#34;</title>")
}

func TestCompileKeepsInlineImages(t *testing.T) {
	const img = "data:image/png;base64,iVBORw0KGgo="
	doc := document.Defaults()
	addSection(doc, "hero-1", "hero", "split", true, map[string]any{"image": img})

	root := parse(t, compile(t, doc, ModeProduction).HTML)
	imgs := findAll(root, byClass("sb-hero__img"))
	require.Len(t, imgs, 1)
	src, _ := getAttr(imgs[0], "src")
	assert.Equal(t, img, src)
}

func TestServicesGridLimitsAndColumns(t *testing.T) {
	items := make([]any, 0, 10)
	for range 10 {
		items = append(items, map[string]any{"title": "S"})
	}
	doc := document.Defaults()
	addSection(doc, "services-1", "services", "grid-2", true, map[string]any{"services": items})
	addSection(doc, "services-2", "services", "default", true, nil)
	addSection(doc, "services-3", "services", "list", true, map[string]any{"services": items})

	root := parse(t, compile(t, doc, ModeProduction).HTML)
	grids := findAll(root, byClass("sb-services__grid"))
	require.Len(t, grids, 2)

	style, _ := getAttr(grids[0], "style")
	assert.Equal(t, "--sb-cols:2", style)
	assert.Len(t, findAll(grids[0], byClass("sb-services__card")), 6)

	style, _ = getAttr(grids[1], "style")
	assert.Equal(t, "--sb-cols:3", style)
	assert.Len(t, findAll(grids[1], byClass("sb-services__card")), 4, "defaults apply when the list is empty")

	assert.Len(t, findAll(root, byClass("sb-services__listItem")), 10)
}

func TestVariantSpecificMarkup(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "header-1", "header", "minimal", true, nil)
	addSection(doc, "testimonials-1", "testimonials", "slider", true, nil)
	addSection(doc, "faq-1", "faq", "two-column", true, nil)
	addSection(doc, "footer-1", "footer", "minimal", true, map[string]any{"companyName": "Acme"})
	addSection(doc, "team-1", "team", "cards", true, map[string]any{
		"members": []any{map[string]any{"name": "jane van doe"}},
	})

	root := parse(t, compile(t, doc, ModeProduction).HTML)

	assert.Empty(t, findAll(root, byClass("sb-header__nav")))

	slides := findAll(root, byClass("sb-testimonials__slide"))
	require.Len(t, slides, 3)
	_, hidden := getAttr(slides[0], "hidden")
	assert.False(t, hidden)
	_, hidden = getAttr(slides[1], "hidden")
	assert.True(t, hidden)

	cols := findAll(root, byClass("sb-faq__col"))
	require.Len(t, cols, 2)
	assert.Len(t, findAll(cols[0], byClass("sb-faq__item")), 2)
	assert.Len(t, findAll(cols[1], byClass("sb-faq__item")), 1)

	copyright := findAll(root, byClass("sb-footer__copy"))
	require.Len(t, copyright, 1)
	assert.Equal(t, "© 2026 Acme", textOf(copyright[0]))

	avatars := findAll(root, byClass("sb-team__avatar"))
	require.Len(t, avatars, 1)
	assert.Equal(t, "JV", strings.TrimSpace(textOf(avatars[0])))
	assert.Len(t, findAll(root, byClass("sb-team__cards")), 1)
}

func TestCustomElements(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "custom-1", "custom", "narrow", true, map[string]any{
		"elements": []any{
			map[string]any{"type": "headline", "content": map[string]any{"text": "Hallo"}},
			map[string]any{"type": "spacer", "content": map[string]any{"height": 1000.0}},
			map[string]any{"type": "spacer"},
			map[string]any{"type": "divider"},
			map[string]any{"type": "columns", "content": map[string]any{
				"left":  map[string]any{"text": "L"},
				"right": map[string]any{"text": "R"},
			}},
			map[string]any{"type": "markdown", "content": map[string]any{
				"markdown": "**bold**\n\n<script>x()</script>\n\n| a | b |\n|---|---|\n| 1 | 2 |",
			}},
			map[string]any{"type": "unknown"},
		},
	})
	addSection(doc, "custom-2", "custom", "full", true, nil)

	out := compile(t, doc, ModeProduction)
	assert.Contains(t, out.HTML, `<div style="height:400px" aria-hidden="true"></div>`)
	assert.Contains(t, out.HTML, `<div style="height:24px" aria-hidden="true"></div>`)
	assert.Contains(t, out.HTML, "<strong>bold</strong>")
	assert.Contains(t, out.HTML, "<table>")
	assert.NotContains(t, out.HTML, "x()")

	root := parse(t, out.HTML)
	assert.Len(t, findAll(root, byClass("sb-hr")), 1)
	assert.Len(t, findAll(root, byClass("sb-columns__col")), 2)
	empty := findAll(root, byClass("sb-empty"))
	require.Len(t, empty, 1)
	assert.Equal(t, "Custom Section – keine Elemente.", textOf(empty[0]))
}

func TestUnknownSectionTypeRendersNothing(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "widget-1", "widget", "default", true, nil)

	root := parse(t, compile(t, doc, ModeProduction).HTML)
	assert.Empty(t, findAll(root, byClass("sb-section")))
}

func TestProductionAndPreviewModes(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "hero-1", "hero", "centered", true, nil)

	prod := compile(t, doc, ModeProduction)
	assert.Contains(t, prod.HTML, `<link rel="stylesheet" href="styles.css">`)
	assert.Contains(t, prod.HTML, `<script src="main.js" defer></script>`)
	require.Len(t, prod.Legal, 2)
	assert.Equal(t, PrivacyFile, prod.Legal[0].Name)
	assert.Equal(t, ImpressumFile, prod.Legal[1].Name)

	preview := compile(t, doc, ModePreview)
	assert.NotContains(t, preview.HTML, "styles.css")
	assert.Contains(t, preview.HTML, "--sb-primary:#0f766e;")
	assert.Contains(t, preview.HTML, "const CONFIG = ")
	assert.Nil(t, preview.Legal)

	root := parse(t, preview.HTML)
	icons := findAll(root, func(n *html.Node) bool {
		rel, _ := getAttr(n, "rel")
		return n.Data == "link" && rel == "icon"
	})
	require.Len(t, icons, 1)
	href, _ := getAttr(icons[0], "href")
	assert.True(t, strings.HasPrefix(href, "data:image/svg+xml,"), href)
}

func TestCompileIsDeterministic(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "header-1", "header", "left", true, nil)
	addSection(doc, "footer-1", "footer", "columns", true, nil)

	a := compile(t, doc, ModeProduction)
	b := compile(t, doc, ModeProduction)
	assert.Equal(t, a, b)
}

func TestCompileDoesNotMutateDocument(t *testing.T) {
	doc := document.Defaults()
	addSection(doc, "hero-1", "hero", "split", true, map[string]any{"headline": "X"})
	before := doc.Clone()

	compile(t, doc, ModeProduction)
	assert.True(t, document.Equal(before, doc))
}

func TestConsentDisabledOmitsCookieRoot(t *testing.T) {
	doc := document.Defaults()
	doc.Settings.Consent.Enabled = false

	out := compile(t, doc, ModeProduction)
	assert.NotContains(t, out.HTML, "sb-cookie-root")
}

func TestLegalPages(t *testing.T) {
	doc := document.Defaults()
	doc.Settings.Consent.Analytics = document.AnalyticsMatomo
	doc.Settings.Legal = document.Legal{Company: "Acme GmbH", Email: "info@acme.test"}

	pages, err := Legal(doc.Settings, Options{Now: fixedNow})
	require.NoError(t, err)
	require.Len(t, pages, 2)

	privacy := pages[0].HTML
	assert.Contains(t, privacy, "<title>Datenschutzerklärung</title>")
	assert.Contains(t, privacy, "Matomo")
	assert.Contains(t, privacy, "Stand: 2026-03-01")
	assert.Contains(t, privacy, `href="styles.css"`)

	impressum := parse(t, pages[1].HTML)
	strong := findAll(impressum, byTag("strong"))
	require.Len(t, strong, 1)
	assert.Equal(t, "Acme GmbH", textOf(strong[0]))
	assert.Contains(t, pages[1].HTML, `href="mailto:info@acme.test"`)
}

func TestStyles(t *testing.T) {
	brand := document.Brand{
		Colors: document.Colors{Primary: "#123456", Accent: "red;}body{display:none"},
		Font:   "serif",
		Radius: "pill",
	}
	css := Styles(brand)
	assert.Contains(t, css, "--sb-primary:#123456;")
	assert.Contains(t, css, "--sb-bg:#ffffff;", "empty tokens fall back to defaults")
	assert.Contains(t, css, "--sb-radius:999px;")
	assert.Contains(t, css, "ui-serif")
	assert.NotContains(t, css, "}body{")
	assert.Contains(t, css, ".sb-container{")

	assert.Equal(t, "6px", RadiusPx("sharp"))
	assert.Equal(t, "14px", RadiusPx("rounded"))
	assert.Contains(t, FontStack("mono"), "ui-monospace")
	assert.Contains(t, FontStack("inter"), "system-ui")
}

func TestScriptEmbedsConfig(t *testing.T) {
	settings := document.Defaults().Settings
	settings.Consent.Analytics = document.AnalyticsGA4
	settings.Consent.Categories = document.ConsentCategories{Statistics: true}
	settings.Features.DarkModeToggle = true

	js, err := Script(settings)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(js, "(function(){"))
	assert.Contains(t, js, `"analytics":"ga4"`)
	assert.Contains(t, js, `"categories":{"necessary":true,"statistics":true,"marketing":false}`)
	assert.Contains(t, js, `"darkModeToggle":true`)
	assert.Contains(t, js, ConsentStorageKey)
	assert.True(t, strings.HasSuffix(js, "})();\n"))
}

type compileRecorder struct {
	metrics.NoopRecorder
	calls int
}

func (r *compileRecorder) ObserveCompileDuration(time.Duration) { r.calls++ }

func TestCompilerRecordsDuration(t *testing.T) {
	rec := &compileRecorder{}
	c := New(WithRecorder(rec))

	_, err := c.Compile(document.Defaults(), Options{Now: fixedNow})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.calls)

	_, err = c.Compile(nil, Options{})
	require.Error(t, err)
}

func TestResolveVariant(t *testing.T) {
	tests := []struct {
		typ     SectionType
		variant string
		want    string
	}{
		{Hero, "default", "centered"},
		{Hero, "split-reverse", "split-reverse"},
		{Services, "", "grid-3"},
		{Benefits, "grid-4", "grid-3"},
		{Footer, "columns", "columns"},
		{SectionType("nope"), "x", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveVariant(tt.typ, tt.variant), "%s/%s", tt.typ, tt.variant)
	}
}
