package compiler

import (
	"bytes"
	"embed"
	"html/template"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("pagesmith").ParseFS(templateFS, "templates/*.html"))

// Context is everything a renderer may read for one section.
type Context struct {
	Section  document.Section
	Variant  string
	Fields   Fields
	Settings document.Settings
	Brand    document.Brand
	Year     int
	Markdown *Markdown
}

// Renderer produces the inner markup of one section type.
type Renderer interface {
	Render(Context) (template.HTML, error)
}

// templateRenderer executes a named template against a view built from the context.
type templateRenderer struct {
	name string
	view func(Context) (any, error)
}

func (r templateRenderer) Render(ctx Context) (template.HTML, error) {
	v, err := r.view(ctx)
	if err != nil {
		return "", err
	}
	return execute(r.name, v)
}

func execute(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	// #nosec G203 -- produced by html/template
	return template.HTML(buf.String()), nil
}

func pure(f func(Context) any) func(Context) (any, error) {
	return func(ctx Context) (any, error) { return f(ctx), nil }
}

// Registry maps section types to renderers.
type Registry map[SectionType]Renderer

// DefaultRegistry returns a renderer for every known section type.
func DefaultRegistry() Registry {
	return Registry{
		Header:       templateRenderer{"header", pure(headerView)},
		Hero:         templateRenderer{"hero", pure(heroView)},
		TrustBar:     templateRenderer{"trustbar", pure(trustView)},
		Services:     templateRenderer{"services", pure(servicesView)},
		Benefits:     templateRenderer{"benefits", pure(benefitsView)},
		Team:         templateRenderer{"team", pure(teamView)},
		Testimonials: templateRenderer{"testimonials", pure(testimonialsView)},
		FAQ:          templateRenderer{"faq", pure(faqView)},
		CTA:          templateRenderer{"cta", pure(ctaView)},
		Footer:       templateRenderer{"footer", pure(footerView)},
		Custom:       templateRenderer{"custom", customView},
	}
}

type link struct {
	Label string
	Href  string
}

// imageURL marks inline image payloads as trusted so html/template keeps them
// in src attributes. Other values go through the normal URL filter.
func imageURL(raw string) any {
	if raw == "" {
		return nil
	}
	if strings.HasPrefix(strings.ToLower(raw), "data:image/") {
		return template.URL(raw) // #nosec G203 -- image payloads only
	}
	return raw
}

func links(items []Fields) []link {
	out := make([]link, 0, len(items))
	for _, it := range items {
		out = append(out, link{Label: it.Str("label", "Link"), Href: it.Str("href", "#")})
	}
	return out
}

func siteName(f Fields, s document.Settings) string {
	return f.Str("companyName", orDefault(s.SiteName, "Meine Website"))
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func headerView(ctx Context) any {
	f := ctx.Fields
	return struct {
		Variant, Company, Tagline, CTAText, CTAHref string
		Sticky                                      bool
		Logo                                        any
		Nav                                         []link
	}{
		Variant: ctx.Variant,
		Company: siteName(f, ctx.Settings),
		Tagline: f.Str("tagline", ""),
		CTAText: f.Str("ctaText", "Kontakt"),
		CTAHref: f.Str("ctaHref", "#cta"),
		Sticky:  ctx.Settings.Features.StickyHeader,
		Logo:    imageURL(ctx.Brand.Logo),
		Nav: links(f.List("nav", []Fields{
			{"label": "Leistungen", "href": "#services"},
			{"label": "Team", "href": "#team"},
			{"label": "FAQ", "href": "#faq"},
		}, 10)),
	}
}

func heroView(ctx Context) any {
	f := ctx.Fields
	return struct {
		Variant, Headline, Subline, CTAText, CTAHref, MoreText string
		Split                                                  bool
		Image                                                  any
	}{
		Variant:  ctx.Variant,
		Headline: f.Str("headline", "Wir bauen Websites, die verkaufen."),
		Subline:  f.Str("subline", "Canvas-first Builder. Saubere Struktur. Schneller Export."),
		CTAText:  f.Str("ctaText", "Angebot anfordern"),
		CTAHref:  f.Str("ctaHref", "#cta"),
		MoreText: "Mehr erfahren",
		Split:    ctx.Variant == "split" || ctx.Variant == "split-reverse",
		Image:    imageURL(f.Str("image", "")),
	}
}

type trustItem struct {
	Label, Value string
	Logo         any
}

func trustView(ctx Context) any {
	f := ctx.Fields
	raw := f.List("items", []Fields{
		{"label": "Partner A", "value": "120+"},
		{"label": "Partner B", "value": "4.9/5"},
		{"label": "Partner C", "value": "10 Jahre"},
	}, 10)
	items := make([]trustItem, 0, len(raw))
	for _, it := range raw {
		items = append(items, trustItem{
			Label: it.Str("label", "Partner"),
			Value: it.Str("value", ""),
			Logo:  imageURL(it.Str("logo", "")),
		})
	}
	return struct {
		Variant, Title string
		Items          []trustItem
	}{ctx.Variant, f.Str("title", "Vertraut von"), items}
}

type card struct {
	Class, Icon, Title, Text string
}

type gridView struct {
	Variant, Headline, Subline string
	List                       bool
	Cols                       int
	Items                      []card
}

func cards(raw []Fields, class, icon, title string) []card {
	out := make([]card, 0, len(raw))
	for _, it := range raw {
		out = append(out, card{
			Class: class,
			Icon:  it.Str("icon", icon),
			Title: it.Str("title", title),
			Text:  it.Str("text", ""),
		})
	}
	return out
}

func servicesView(ctx Context) any {
	f := ctx.Fields
	raw := f.List("services", []Fields{
		{"title": "Webdesign", "text": "Modern, schnell, conversion-stark.", "icon": "✓"},
		{"title": "SEO", "text": "Saubere Struktur für gute Rankings.", "icon": "⌁"},
		{"title": "Content", "text": "Texte, die verkaufen.", "icon": "✎"},
		{"title": "Performance", "text": "Lighthouse-ready.", "icon": "⚡"},
	}, 12)
	v := gridView{
		Variant:  ctx.Variant,
		Headline: f.Str("headline", "Unsere Leistungen"),
		Subline:  f.Str("subline", "Alles, was du für einen sauberen Launch brauchst."),
		List:     ctx.Variant == "list",
	}
	switch ctx.Variant {
	case "grid-2":
		v.Cols = 2
	case "grid-4":
		v.Cols = 4
	default:
		v.Cols = 3
	}
	if !v.List {
		raw = truncate(raw, v.Cols*3)
	}
	v.Items = cards(raw, "sb-services__card", "•", "Service")
	return v
}

func benefitsView(ctx Context) any {
	f := ctx.Fields
	raw := f.List("benefits", []Fields{
		{"title": "Schnell", "text": "Keine Build-Tools nötig.", "icon": "⚡"},
		{"title": "Sauber", "text": "Modulare Architektur.", "icon": "✓"},
		{"title": "Offline", "text": "PWA-ready Export.", "icon": "⬣"},
	}, 12)
	v := gridView{
		Variant:  ctx.Variant,
		Headline: f.Str("headline", "Vorteile"),
		List:     ctx.Variant == "list",
		Cols:     3,
		Items:    cards(raw, "sb-benefits__card", "★", "Benefit"),
	}
	if ctx.Variant == "grid-2" {
		v.Cols = 2
	}
	return v
}

type member struct {
	Name, Role, Bio, Initials string
	Avatar                    any
}

// initials takes the upper-cased first letters of up to two words.
func initials(name string) string {
	var b strings.Builder
	for i, w := range strings.Fields(name) {
		if i == 2 {
			break
		}
		r, _ := utf8.DecodeRuneInString(w)
		b.WriteRune(unicode.ToUpper(r))
	}
	return orDefault(b.String(), "•")
}

func teamView(ctx Context) any {
	f := ctx.Fields
	raw := f.List("members", []Fields{
		{"name": "Alex Muster", "role": "Founder", "bio": "Produkt & Strategie"},
		{"name": "Sam Beispiel", "role": "Design", "bio": "UI/UX & Branding"},
		{"name": "Pat Demo", "role": "Engineering", "bio": "Frontend & Export"},
	}, 12)
	members := make([]member, 0, len(raw))
	for _, m := range raw {
		members = append(members, member{
			Name:     m.Str("name", "Name"),
			Role:     m.Str("role", ""),
			Bio:      m.Str("bio", ""),
			Initials: initials(m.Str("name", "")),
			Avatar:   imageURL(m.Str("avatar", "")),
		})
	}
	grid := "sb-team__grid"
	if ctx.Variant == "cards" {
		grid = "sb-team__cards"
	}
	return struct {
		Variant, Headline, GridClass string
		Members                      []member
	}{ctx.Variant, f.Str("headline", "Team"), grid, members}
}

type quote struct {
	Quote, Name, Role string
}

func testimonialsView(ctx Context) any {
	f := ctx.Fields
	raw := f.List("items", []Fields{
		{"quote": "Extrem sauberer Builder – Export funktioniert sofort.", "name": "Kundin A", "role": "CEO"},
		{"quote": "Struktur → Design → Export fühlt sich richtig an.", "name": "Kunde B", "role": "Marketing"},
		{"quote": "Offline-fähig und schnell. Genau was wir wollten.", "name": "Kunde C", "role": "Founder"},
	}, 10)
	items := make([]quote, 0, len(raw))
	for _, q := range raw {
		items = append(items, quote{Quote: q.Str("quote", ""), Name: q.Str("name", ""), Role: q.Str("role", "")})
	}
	var first quote
	if len(items) > 0 {
		first = items[0]
	}
	return struct {
		Variant, Headline string
		Items             []quote
		First             quote
	}{ctx.Variant, f.Str("headline", "Testimonials"), items, first}
}

type qa struct {
	Q, A string
}

func faqView(ctx Context) any {
	f := ctx.Fields
	raw := f.List("items", []Fields{
		{"q": "Wie exportiere ich?", "a": "Im Export-Modus kannst du Preview HTML, ZIP oder JSON downloaden."},
		{"q": "Bleibt alles offline?", "a": "Ja. PWA + Service Worker funktionieren ohne Backend."},
		{"q": "Kann ich Sections reorder?", "a": "Ja – per Drag & Drop in Struktur."},
	}, 16)
	items := make([]qa, 0, len(raw))
	for _, it := range raw {
		items = append(items, qa{Q: it.Str("q", ""), A: it.Str("a", "")})
	}
	half := (len(items) + 1) / 2
	return struct {
		Variant, Headline  string
		Items, Left, Right []qa
	}{ctx.Variant, f.Str("headline", "FAQ"), items, items[:half], items[half:]}
}

func ctaView(ctx Context) any {
	f := ctx.Fields
	return struct {
		Variant, Headline, Subline, ButtonText, ButtonHref string
	}{
		Variant:    ctx.Variant,
		Headline:   f.Str("headline", "Bereit für den Launch?"),
		Subline:    f.Str("subline", "In wenigen Minuten zur exportierbaren Website."),
		ButtonText: f.Str("buttonText", "Jetzt starten"),
		ButtonHref: f.Str("buttonHref", "#"),
	}
}

func footerView(ctx Context) any {
	f := ctx.Fields
	phone := f.Str("phone", "+41 44 000 00 00")
	raw := f.List("links", []Fields{
		{"label": "Datenschutz", "href": "privacy.html"},
		{"label": "Impressum", "href": "impressum.html"},
	}, 10)
	footerLinks := make([]link, 0, len(raw))
	for _, l := range raw {
		footerLinks = append(footerLinks, link{Label: l.Str("label", ""), Href: l.Str("href", "")})
	}
	return struct {
		Variant, Company, Address, Email, Phone, PhoneDial string
		Year                                               int
		Links                                              []link
	}{
		Variant:   ctx.Variant,
		Company:   siteName(f, ctx.Settings),
		Address:   f.Str("address", "Musterstrasse 1\n8000 Zürich"),
		Email:     f.Str("email", "hello@example.com"),
		Phone:     phone,
		PhoneDial: strings.Join(strings.Fields(phone), ""),
		Year:      ctx.Year,
		Links:     footerLinks,
	}
}

// Custom element limits.
const (
	DefaultSpacerHeight = 24
	MaxSpacerHeight     = 400
)

type element struct {
	Type, Text, Href, Label, Alt, Left, Right string
	Src                                       any
	Height                                    int
	HTML                                      template.HTML
}

func customView(ctx Context) (any, error) {
	raw, _ := ctx.Fields["elements"].([]any)
	elements := make([]element, 0, len(raw))
	for _, item := range raw {
		el, _ := item.(map[string]any)
		typ := text(el["type"])
		c := Fields(el).Obj("content")
		e := element{Type: typ}
		switch typ {
		case "headline":
			e.Text = c.Str("text", "Headline")
		case "text":
			e.Text = c.Str("text", "Text…")
		case "button":
			e.Label = c.Str("label", "Button")
			e.Href = c.Str("href", "#")
		case "image":
			e.Src = imageURL(c.Str("src", ""))
			e.Alt = c.Str("alt", "")
		case "spacer":
			h := c.Num("height", DefaultSpacerHeight)
			e.Height = int(math.Max(0, math.Min(MaxSpacerHeight, h)))
		case "divider":
		case "columns":
			e.Left = c.Obj("left").Str("text", "")
			e.Right = c.Obj("right").Str("text", "")
		case "markdown":
			md := ctx.Markdown
			if md == nil {
				md = NewMarkdown()
			}
			out, err := md.Render(c.Str("markdown", c.Str("text", "")))
			if err != nil {
				return nil, err
			}
			e.HTML = out
		default:
			continue
		}
		elements = append(elements, e)
	}
	return struct {
		Variant  string
		Elements []element
	}{ctx.Variant, elements}, nil
}
