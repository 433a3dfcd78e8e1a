package compiler

// SectionType is the closed set of renderable section kinds.
type SectionType string

const (
	Header       SectionType = "header"
	Hero         SectionType = "hero"
	TrustBar     SectionType = "trustbar"
	Services     SectionType = "services"
	Benefits     SectionType = "benefits"
	Team         SectionType = "team"
	Testimonials SectionType = "testimonials"
	FAQ          SectionType = "faq"
	CTA          SectionType = "cta"
	Footer       SectionType = "footer"
	Custom       SectionType = "custom"
)

// variants lists the layouts of each type; the first entry is the default.
var variants = map[SectionType][]string{
	Header:       {"left", "centered", "minimal"},
	Hero:         {"centered", "split", "split-reverse", "fullscreen", "minimal"},
	TrustBar:     {"logos", "logos-text", "stats", "badges"},
	Services:     {"grid-3", "grid-2", "grid-4", "list"},
	Benefits:     {"grid-3", "grid-2", "list"},
	Team:         {"grid", "cards", "minimal"},
	Testimonials: {"grid", "single", "slider"},
	FAQ:          {"accordion", "two-column"},
	CTA:          {"centered", "banner", "split"},
	Footer:       {"simple", "columns", "minimal"},
	Custom:       {"full", "narrow"},
}

// Variants returns the supported variants of t, default first.
func Variants(t SectionType) []string {
	return append([]string(nil), variants[t]...)
}

// ResolveVariant maps a stored variant to a supported one. "default", empty
// and unknown values resolve to the type's default variant.
func ResolveVariant(t SectionType, variant string) string {
	list := variants[t]
	if len(list) == 0 {
		return ""
	}
	for _, v := range list {
		if v == variant {
			return v
		}
	}
	return list[0]
}
