// Package palette derives brand colors from a logo image and provides the
// contrast helpers used to keep derived text colors readable.
package palette

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Fixed text candidates.
const (
	DarkText  = "#0f172a"
	LightText = "#ffffff"
)

// RGB is an opaque 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex renders c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) distanceSq(o RGB) float64 {
	dr := float64(c.R) - float64(o.R)
	dg := float64(c.G) - float64(o.G)
	db := float64(c.B) - float64(o.B)
	return dr*dr + dg*dg + db*db
}

// ParseHex parses #rgb and #rrggbb colors, with or without the leading hash.
func ParseHex(s string) (RGB, bool) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, false
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

func linear(c uint8) float64 {
	v := float64(c) / 255
	if v <= 0.04045 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// RelativeLuminance returns the WCAG relative luminance of c.
func RelativeLuminance(c RGB) float64 {
	return 0.2126*linear(c.R) + 0.7152*linear(c.G) + 0.0722*linear(c.B)
}

// ContrastRatio returns the WCAG contrast ratio of two hex colors, between 1
// and 21. Unparseable input yields 1.
func ContrastRatio(a, b string) float64 {
	ca, okA := ParseHex(a)
	cb, okB := ParseHex(b)
	if !okA || !okB {
		return 1
	}
	la, lb := RelativeLuminance(ca), RelativeLuminance(cb)
	hi, lo := math.Max(la, lb), math.Min(la, lb)
	return (hi + 0.05) / (lo + 0.05)
}

// PickTextOn returns whichever of DarkText and LightText contrasts more with
// bg, as long as it reaches minRatio; dark wins ties. When neither reaches
// minRatio, pure black or white is returned, whichever contrasts more; one of
// them always reaches 4.5 on an opaque color.
func PickTextOn(bg string, minRatio float64) string {
	dark := ContrastRatio(DarkText, bg)
	light := ContrastRatio(LightText, bg)
	switch {
	case dark >= minRatio && dark >= light:
		return DarkText
	case light >= minRatio:
		return LightText
	case dark >= minRatio:
		return DarkText
	}
	if ContrastRatio("#000000", bg) >= ContrastRatio("#ffffff", bg) {
		return "#000000"
	}
	return "#ffffff"
}
