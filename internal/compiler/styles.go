package compiler

import (
	_ "embed"
	"fmt"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/document"
)

//go:embed assets/site.css
var siteCSS string

const (
	serifStack  = `ui-serif, Georgia, Cambria, "Times New Roman", Times, serif`
	monoStack   = `ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", "Courier New", monospace`
	systemStack = `system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial, "Apple Color Emoji", "Segoe UI Emoji"`
)

// FontStack maps a brand font id to a CSS font-family list.
func FontStack(id string) string {
	switch id {
	case "serif":
		return serifStack
	case "mono":
		return monoStack
	default:
		return systemStack
	}
}

// RadiusPx maps a brand radius id to a CSS length.
func RadiusPx(radius string) string {
	switch radius {
	case "pill":
		return "999px"
	case "sharp":
		return "6px"
	default:
		return "14px"
	}
}

// cssValue drops characters that could end a declaration or the style element.
func cssValue(v, fallback string) string {
	v = strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '\n', '\r':
			return -1
		}
		return r
	}, strings.TrimSpace(v))
	if v == "" {
		return fallback
	}
	return v
}

// Tokens renders the custom-property layer for brand.
func Tokens(brand document.Brand) string {
	c := brand.Colors
	d := document.DefaultColors
	var b strings.Builder
	b.WriteString(":root{\n")
	for _, kv := range [][2]string{
		{"--sb-primary", cssValue(c.Primary, d.Primary)},
		{"--sb-accent", cssValue(c.Accent, d.Accent)},
		{"--sb-bg", cssValue(c.Background, d.Background)},
		{"--sb-surface", cssValue(c.Surface, d.Surface)},
		{"--sb-text", cssValue(c.Text, d.Text)},
		{"--sb-text-muted", cssValue(c.TextLight, d.TextLight)},
		{"--sb-border", cssValue(c.Border, d.Border)},
		{"--sb-radius", RadiusPx(brand.Radius)},
		{"--sb-font", FontStack(brand.Font)},
		{"--sb-container", "1200px"},
		{"--sb-gutter", "24px"},
		{"--sb-shadow", "0 10px 30px rgba(2,6,23,0.08)"},
		{"--sb-shadow-sm", "0 6px 18px rgba(2,6,23,0.08)"},
		{"--sb-btn-h", "44px"},
		{"--sb-btn-pad", "16px"},
		{"--sb-trans", "160ms ease"},
	} {
		fmt.Fprintf(&b, "  %s:%s;\n", kv[0], kv[1])
	}
	b.WriteString("}\n")
	return b.String()
}

// Styles returns the complete stylesheet: brand tokens followed by the structural rules.
func Styles(brand document.Brand) string {
	return Tokens(brand) + "\n" + siteCSS
}
