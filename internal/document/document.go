// Package document defines the canonical website-in-progress value and the helpers
// that keep its invariants: order reconciliation, pruning, type-aware cloning and
// structural equality.
package document

// Mode is the current authoring phase. It is UI-facing only and never gates compilation.
type Mode string

const (
	ModeStructure Mode = "structure"
	ModeDesign    Mode = "design"
	ModeExport    Mode = "export"
)

// NormalizeMode maps unknown values to ModeStructure.
func NormalizeMode(raw string) Mode {
	switch Mode(raw) {
	case ModeStructure, ModeDesign, ModeExport:
		return Mode(raw)
	default:
		return ModeStructure
	}
}

// Document is the single canonical value owned by a store.
type Document struct {
	Mode     Mode     `json:"mode"`
	Layout   Layout   `json:"layout"`
	Brand    Brand    `json:"brand"`
	Content  Content  `json:"content"`
	Settings Settings `json:"settings"`
	UI       UI       `json:"ui"`
}

// Layout holds the section registry, the visible order and per-section spacing.
type Layout struct {
	Sections []Section          `json:"sections"`
	Order    []string           `json:"order"`
	Spacing  map[string]Spacing `json:"spacing"`
}

// Section is one structural block of the page.
type Section struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Variant string `json:"variant"`
	Enabled bool   `json:"enabled"`
}

// Spacing is the vertical padding of a section in pixels.
type Spacing struct {
	PT int `json:"pt"`
	PB int `json:"pb"`
}

// Spacing bounds. Values snap to an 8px rhythm grid.
const (
	DefaultPadding = 64
	MinPadding     = 0
	MaxPadding     = 160
	PaddingGrid    = 8
)

// DefaultSpacing is applied to new sections and to sections without an entry.
var DefaultSpacing = Spacing{PT: DefaultPadding, PB: DefaultPadding}

// Brand carries the design tokens driving generated styles.
type Brand struct {
	Logo   string `json:"logo,omitempty"`
	Colors Colors `json:"colors"`
	Font   string `json:"font"`
	Radius string `json:"radius"`
}

// Colors is the fixed set of named color tokens.
type Colors struct {
	Primary    string `json:"primary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Surface    string `json:"surface"`
	Text       string `json:"text"`
	TextLight  string `json:"textLight"`
	Border     string `json:"border"`
}

// Content maps a section id to its free-form content object.
type Content map[string]map[string]any

// Settings is site metadata and behavior configuration.
type Settings struct {
	SiteName        string   `json:"siteName"`
	SiteDescription string   `json:"siteDescription"`
	Favicon         string   `json:"favicon"`
	Language        string   `json:"language"`
	Consent         Consent  `json:"consent"`
	Features        Features `json:"features"`
	Legal           Legal    `json:"legal"`
}

// Analytics provider identifiers.
const (
	AnalyticsNone   = "none"
	AnalyticsGA4    = "ga4"
	AnalyticsMatomo = "matomo"
)

// Consent configures the cookie banner of the generated site.
type Consent struct {
	Enabled     bool              `json:"enabled"`
	Analytics   string            `json:"analytics"`
	PrivacyLink string            `json:"privacyLink"`
	Categories  ConsentCategories `json:"categories"`
}

// ConsentCategories are the default category choices offered by the banner.
type ConsentCategories struct {
	Necessary  bool `json:"necessary"`
	Statistics bool `json:"statistics"`
	Marketing  bool `json:"marketing"`
}

// Features toggles optional behavior of the generated site.
type Features struct {
	DarkModeToggle bool `json:"darkModeToggle"`
	StickyHeader   bool `json:"stickyHeader"`
	SmoothScroll   bool `json:"smoothScroll"`
}

// Legal holds the operator details used by the imprint and privacy pages.
type Legal struct {
	Company string `json:"company"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// Builder theme preferences.
const (
	ThemeLight = "light"
	ThemeDark  = "dark"
)

// UI is ephemeral authoring state. It is never compiler input.
type UI struct {
	ActiveSection     string `json:"activeSection,omitempty"`
	ActiveElementPath string `json:"activeElementPath,omitempty"`
	ShowGrid          bool   `json:"showGrid"`
	Show8pxRaster     bool   `json:"show8pxRaster"`
	SidebarTab        string `json:"sidebarTab"`
	BuilderTheme      string `json:"builderTheme"`
}

// DefaultColors is the brand palette of a fresh project.
var DefaultColors = Colors{
	Primary:    "#0f766e",
	Accent:     "#f59e0b",
	Background: "#ffffff",
	Surface:    "#f8fafc",
	Text:       "#0f172a",
	TextLight:  "#64748b",
	Border:     "rgba(0,0,0,0.08)",
}

// Defaults returns a fresh default document. Every call returns independent storage.
func Defaults() *Document {
	return &Document{
		Mode: ModeStructure,
		Layout: Layout{
			Sections: []Section{},
			Order:    []string{},
			Spacing:  map[string]Spacing{},
		},
		Brand: Brand{
			Colors: DefaultColors,
			Font:   "inter",
			Radius: "rounded",
		},
		Content: Content{},
		Settings: Settings{
			SiteName: "Meine Website",
			Favicon:  "🏠",
			Language: "de",
			Consent: Consent{
				Enabled:     true,
				Analytics:   AnalyticsNone,
				PrivacyLink: "/datenschutz",
				Categories:  ConsentCategories{Necessary: true},
			},
			Features: Features{StickyHeader: true, SmoothScroll: true},
		},
		UI: UI{
			ShowGrid:     true,
			SidebarTab:   "sections",
			BuilderTheme: ThemeLight,
		},
	}
}

// Section returns the section with the given id.
func (d *Document) Section(id string) (Section, bool) {
	if i := d.sectionIndex(id); i >= 0 {
		return d.Layout.Sections[i], true
	}
	return Section{}, false
}

// HasSection reports whether a section with id exists.
func (d *Document) HasSection(id string) bool {
	return d.sectionIndex(id) >= 0
}

func (d *Document) sectionIndex(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range d.Layout.Sections {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// SpacingFor returns the spacing of a section, falling back to DefaultSpacing.
func (d *Document) SpacingFor(id string) Spacing {
	if sp, ok := d.Layout.Spacing[id]; ok {
		return sp
	}
	return DefaultSpacing
}

// OrderedSections returns the sections in visible order.
func (d *Document) OrderedSections() []Section {
	out := make([]Section, 0, len(d.Layout.Order))
	for _, id := range d.Layout.Order {
		if s, ok := d.Section(id); ok {
			out = append(out, s)
		}
	}
	return out
}
