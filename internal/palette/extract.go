package palette

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"math"
	"net/url"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp" // register decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register decoder

	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// Options tune an extraction.
type Options struct {
	MaxSize       int // longer edge after downscaling
	MaxCandidates int
	Colors        int
	MinAlpha      uint8
}

// DefaultOptions returns the standard extraction settings.
func DefaultOptions() Options {
	return Options{MaxSize: 96, MaxCandidates: 48, Colors: 8, MinAlpha: 32}
}

// Option adjusts Options.
type Option func(*Options)

// WithMaxSize sets the downscale cap.
func WithMaxSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxSize = n
		}
	}
}

// WithColors sets the target palette size.
func WithColors(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Colors = n
		}
	}
}

// Result is an extracted palette.
type Result struct {
	Colors     []string `json:"colors"`
	Width      int      `json:"width"`
	Height     int      `json:"height"`
	Candidates int      `json:"candidates"`
	Fallback   bool     `json:"fallback"`
}

type candidate struct {
	key   int
	count int
	rgb   RGB
}

// whiteCutoff marks near-white background pixels that are skipped.
const whiteCutoff = 248

// Extract computes a palette of distinct dominant colors from img.
func Extract(ctx context.Context, img image.Image, opts ...Option) (Result, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if img == nil {
		return Result{}, errors.PaletteError("no image").Build()
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return Result{}, errors.PaletteError("image has no pixels").Build()
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	scaled := downscale(img, o.MaxSize)
	w, h := scaled.Bounds().Dx(), scaled.Bounds().Dy()

	hist := make(map[int]int)
	for y := 0; y < h; y++ {
		if y%16 == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		for x := 0; x < w; x++ {
			c := scaled.NRGBAAt(x, y)
			if c.A < o.MinAlpha {
				continue
			}
			if c.R > whiteCutoff && c.G > whiteCutoff && c.B > whiteCutoff {
				continue
			}
			key := int(c.R>>4)<<8 | int(c.G>>4)<<4 | int(c.B>>4)
			hist[key]++
		}
	}

	candidates := topCandidates(hist, o.MaxCandidates)
	res := Result{Width: w, Height: h, Candidates: len(candidates)}
	if len(candidates) == 0 {
		res.Colors = append([]string(nil), FallbackPalette...)
		res.Fallback = true
		return res, nil
	}
	for _, c := range selectDiverse(candidates, o.Colors) {
		res.Colors = append(res.Colors, c.rgb.Hex())
	}
	return res, nil
}

func downscale(img image.Image, maxSize int) *image.NRGBA {
	b := img.Bounds()
	scale := math.Min(1, float64(maxSize)/float64(max(b.Dx(), b.Dy())))
	w := max(1, int(math.Round(float64(b.Dx())*scale)))
	h := max(1, int(math.Round(float64(b.Dy())*scale)))
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// topCandidates returns the most frequent buckets, ties broken by bucket key.
func topCandidates(hist map[int]int, limit int) []candidate {
	out := make([]candidate, 0, len(hist))
	for key, count := range hist {
		out = append(out, candidate{
			key:   key,
			count: count,
			rgb: RGB{
				R: uint8((key >> 8 & 0x0f) * 17),
				G: uint8((key >> 4 & 0x0f) * 17),
				B: uint8((key & 0x0f) * 17),
			},
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// selectDiverse seeds with the most frequent candidate and then greedily adds
// the candidate farthest from everything picked, mildly weighted by frequency.
func selectDiverse(candidates []candidate, want int) []candidate {
	picked := []candidate{candidates[0]}
	used := map[int]bool{candidates[0].key: true}
	top := float64(candidates[0].count)
	for len(picked) < want && len(picked) < len(candidates) {
		best := -1
		bestScore := -1.0
		for i, c := range candidates {
			if used[c.key] {
				continue
			}
			minDist := math.Inf(1)
			for _, p := range picked {
				minDist = math.Min(minDist, c.rgb.distanceSq(p.rgb))
			}
			score := minDist * (0.65 + 0.35*float64(c.count)/top)
			if score > bestScore {
				bestScore = score
				best = i
			}
		}
		if best < 0 {
			break
		}
		picked = append(picked, candidates[best])
		used[candidates[best].key] = true
	}
	return picked
}

// DecodeDataURL decodes a base64 image data URL. Vector images are rejected.
func DecodeDataURL(dataURL string) (image.Image, string, error) {
	mime, payload, ok := splitDataURL(dataURL)
	if !ok {
		return nil, "", errors.PaletteError("not an image data URL").Build()
	}
	if strings.HasPrefix(mime, "image/svg") {
		return nil, "", errors.PaletteError("vector logos cannot be analysed").
			WithContext("mime", mime).Build()
	}
	img, format, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, "", errors.WrapError(err, errors.CategoryPalette, "image could not be decoded").
			UserAction().WithContext("mime", mime).Build()
	}
	return img, format, nil
}

// ExtractDataURL decodes dataURL and extracts its palette.
func ExtractDataURL(ctx context.Context, dataURL string, opts ...Option) (Result, error) {
	img, _, err := DecodeDataURL(dataURL)
	if err != nil {
		return Result{}, err
	}
	return Extract(ctx, img, opts...)
}

func splitDataURL(s string) (mime string, payload []byte, ok bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !found {
		return "", nil, false
	}
	header, data, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, false
	}
	params := strings.Split(header, ";")
	mime = strings.ToLower(params[0])
	if !strings.HasPrefix(mime, "image/") {
		return "", nil, false
	}
	isBase64 := false
	for _, p := range params[1:] {
		if strings.EqualFold(p, "base64") {
			isBase64 = true
		}
	}
	if isBase64 {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return "", nil, false
		}
		return mime, raw, true
	}
	unescaped, err := url.PathUnescape(data)
	if err != nil {
		return "", nil, false
	}
	return mime, []byte(unescaped), true
}
