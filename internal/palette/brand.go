package palette

import "git.home.luguber.info/inful/pagesmith/internal/document"

const mutedOnDark = "rgba(255,255,255,0.72)"

// FallbackPalette is returned when an image has no usable pixels.
var FallbackPalette = []string{"#0f766e", "#f59e0b", "#0f172a", "#64748b"}

// BuildBrand derives brand colors from an extracted palette. Primary and
// accent come from the first two palette entries; every other token keeps its
// current value and is derived only when empty.
func BuildBrand(palette []string, current document.Colors) document.Colors {
	out := current
	out.Primary = pick(palette, 0, current.Primary, document.DefaultColors.Primary)
	out.Accent = pick(palette, 1, current.Accent, document.DefaultColors.Accent)
	out.Background = orDefault(current.Background, document.DefaultColors.Background)
	out.Surface = orDefault(current.Surface, document.DefaultColors.Surface)
	out.Border = orDefault(current.Border, document.DefaultColors.Border)
	if out.Text == "" {
		out.Text = PickTextOn(out.Background, 4.5)
	}
	if out.TextLight == "" {
		out.TextLight = MutedTextOn(out.Background)
	}
	return out
}

// MutedTextOn returns the secondary text token for bg.
func MutedTextOn(bg string) string {
	if PickTextOn(bg, 3.0) == LightText {
		return mutedOnDark
	}
	return document.DefaultColors.TextLight
}

// Assign sets one color token. Changing the background re-derives both text
// tokens so they stay readable.
func Assign(current document.Colors, key, hex string) document.Colors {
	if hex == "" {
		return current
	}
	out := current
	switch key {
	case "primary":
		out.Primary = hex
	case "accent":
		out.Accent = hex
	case "surface":
		out.Surface = hex
	case "text":
		out.Text = hex
	case "textLight":
		out.TextLight = hex
	case "border":
		out.Border = hex
	case "background":
		out.Background = hex
		out.Text = PickTextOn(hex, 4.5)
		out.TextLight = MutedTextOn(hex)
	}
	return out
}

func pick(palette []string, i int, current, fallback string) string {
	if i < len(palette) && palette[i] != "" {
		return palette[i]
	}
	return orDefault(current, fallback)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
