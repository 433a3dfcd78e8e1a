// Package compiler turns a document into a static site: one HTML page, a
// stylesheet, a behavior script and the legal pages.
package compiler

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/logfields"
	"git.home.luguber.info/inful/pagesmith/internal/metrics"
)

// Mode selects how styles and script are attached to the page.
type Mode string

const (
	// ModeProduction links styles.css and main.js.
	ModeProduction Mode = "production"
	// ModePreview inlines both into a single self-contained file.
	ModePreview Mode = "preview"
)

// File names of a production build.
const (
	IndexFile     = "index.html"
	StylesFile    = "styles.css"
	ScriptFile    = "main.js"
	PrivacyFile   = "privacy.html"
	ImpressumFile = "impressum.html"
)

// Options control a single compilation.
type Options struct {
	Mode Mode
	// Now stamps the footer year and the legal pages. Zero means the compiler's clock.
	Now time.Time
	// CSSHref and JSSrc override the production asset links.
	CSSHref string
	JSSrc   string
	// FaviconDataURL replaces the generated emoji icon.
	FaviconDataURL string
	// SkipLegal omits the privacy and imprint pages.
	SkipLegal bool
}

// Page is one additional HTML file of the site.
type Page struct {
	Name string
	HTML string
}

// Output is the compiled site.
type Output struct {
	HTML  string
	CSS   string
	JS    string
	Legal []Page
}

// Compiler renders documents. The zero value is not usable; use New.
type Compiler struct {
	registry Registry
	markdown *Markdown
	clock    clockwork.Clock
	logger   *slog.Logger
	recorder metrics.Recorder
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithRegistry replaces the section renderers.
func WithRegistry(r Registry) Option { return func(c *Compiler) { c.registry = r } }

// WithClock sets the clock used when Options.Now is zero.
func WithClock(clock clockwork.Clock) Option { return func(c *Compiler) { c.clock = clock } }

func WithLogger(l *slog.Logger) Option { return func(c *Compiler) { c.logger = l } }

func WithRecorder(r metrics.Recorder) Option { return func(c *Compiler) { c.recorder = r } }

// New returns a compiler with the default renderers.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		registry: DefaultRegistry(),
		markdown: NewMarkdown(),
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.recorder = metrics.OrNoop(c.recorder)
	return c
}

// Compile renders doc with a default compiler.
func Compile(doc *document.Document, opts Options) (*Output, error) {
	return New().Compile(doc, opts)
}

// Compile renders doc. It never mutates doc and never reads UI state.
func (c *Compiler) Compile(doc *document.Document, opts Options) (*Output, error) {
	if doc == nil {
		return nil, errors.CompileError("document is nil").Build()
	}
	start := c.clock.Now()
	if opts.Now.IsZero() {
		opts.Now = start
	}
	if opts.Mode == "" {
		opts.Mode = ModeProduction
	}

	body, err := c.Body(doc, opts.Now.Year())
	if err != nil {
		return nil, err
	}
	css := Styles(doc.Brand)
	js, err := Script(doc.Settings)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryCompile, "encode script config").Build()
	}

	html, err := c.page(doc, body, css, js, opts)
	if err != nil {
		return nil, err
	}
	out := &Output{HTML: html, CSS: css, JS: js}

	if !opts.SkipLegal && opts.Mode == ModeProduction {
		if out.Legal, err = Legal(doc.Settings, opts); err != nil {
			return nil, err
		}
	}

	elapsed := c.clock.Since(start)
	c.recorder.ObserveCompileDuration(elapsed)
	c.logger.Debug("Compiled site",
		slog.String("mode", string(opts.Mode)),
		slog.Int("sections", len(doc.Layout.Order)),
		logfields.Bytes(len(out.HTML)),
		logfields.DurationMS(float64(elapsed.Microseconds())/1000))
	return out, nil
}

// Body renders the enabled sections in visible order, each inside its spacing wrapper.
func (c *Compiler) Body(doc *document.Document, year int) (template.HTML, error) {
	var buf strings.Builder
	for _, s := range doc.OrderedSections() {
		if !s.Enabled {
			continue
		}
		html, err := c.Section(doc, s, year)
		if err != nil {
			return "", err
		}
		if html == "" {
			continue
		}
		buf.WriteString(string(html))
		buf.WriteByte('\n')
	}
	// #nosec G203 -- concatenation of html/template output
	return template.HTML(buf.String()), nil
}

// Section renders one section including its wrapper. Unknown types render nothing.
func (c *Compiler) Section(doc *document.Document, s document.Section, year int) (template.HTML, error) {
	typ := SectionType(document.NormalizeSectionType(s.Type))
	r, ok := c.registry[typ]
	if !ok {
		c.logger.Debug("Skipping unknown section type", logfields.Section(s.ID), slog.String("type", s.Type))
		return "", nil
	}
	variant := ResolveVariant(typ, s.Variant)
	inner, err := r.Render(Context{
		Section:  s,
		Variant:  variant,
		Fields:   Fields(doc.Content[s.ID]),
		Settings: doc.Settings,
		Brand:    doc.Brand,
		Year:     year,
		Markdown: c.markdown,
	})
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryCompile, "render section").
			WithContext("section", s.ID).
			WithContext("type", string(typ)).
			Build()
	}
	if inner == "" {
		return "", nil
	}
	sp := doc.SpacingFor(s.ID)
	out, err := execute("wrapper", struct {
		Type, Variant, ID string
		PT, PB            int
		Inner             template.HTML
	}{string(typ), variant, s.ID, sp.PT, sp.PB, inner})
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryCompile, "render section wrapper").
			WithContext("section", s.ID).Build()
	}
	return out, nil
}

type pageData struct {
	Lang, Title, Description, ThemeColor string
	Icon                                 template.URL
	Inline                               bool
	CSS                                  template.CSS
	JS                                   template.JS
	CSSHref, JSSrc                       string
	Body                                 template.HTML
	Cookie                               bool
}

func (c *Compiler) page(doc *document.Document, body template.HTML, css, js string, opts Options) (string, error) {
	s := doc.Settings
	data := pageData{
		Lang:        orDefault(s.Language, "de"),
		Title:       orDefault(s.SiteName, "Meine Website"),
		Description: s.SiteDescription,
		ThemeColor:  orDefault(doc.Brand.Colors.Primary, document.DefaultColors.Primary),
		Icon:        faviconURL(s.Favicon, opts.FaviconDataURL),
		Inline:      opts.Mode == ModePreview,
		CSSHref:     orDefault(opts.CSSHref, StylesFile),
		JSSrc:       orDefault(opts.JSSrc, ScriptFile),
		Body:        body,
		Cookie:      s.Consent.Enabled,
	}
	if data.Inline {
		// #nosec G203 -- generated by Styles and Script
		data.CSS = template.CSS(css)
		data.JS = template.JS(js)
	}
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "page", data); err != nil {
		return "", errors.WrapError(err, errors.CategoryCompile, "render page").Build()
	}
	return buf.String(), nil
}

// faviconURL wraps an emoji (or any short text) in an SVG data URL.
func faviconURL(favicon, override string) template.URL {
	if strings.HasPrefix(strings.ToLower(override), "data:image/") {
		return template.URL(override) // #nosec G203 -- image payload
	}
	svg := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100"><text y="0.9em" font-size="90">` +
		template.HTMLEscapeString(orDefault(favicon, "🏠")) + `</text></svg>`
	return template.URL("data:image/svg+xml," + url.PathEscape(svg)) // #nosec G203 -- escaped above
}
