package palette

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

// stripes builds an image whose columns are filled with the given colors,
// each band as wide as its weight.
func stripes(height int, bands ...band) *image.NRGBA {
	width := 0
	for _, b := range bands {
		width += b.w
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, b := range bands {
		for i := 0; i < b.w; i++ {
			for y := 0; y < height; y++ {
				img.SetNRGBA(x, y, b.c)
			}
			x++
		}
	}
	return img
}

type band struct {
	c color.NRGBA
	w int
}

func dataURL(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestParseHexAndContrast(t *testing.T) {
	c, ok := ParseHex("#0F766E")
	require.True(t, ok)
	assert.Equal(t, RGB{0x0f, 0x76, 0x6e}, c)

	c, ok = ParseHex("fff")
	require.True(t, ok)
	assert.Equal(t, "#ffffff", c.Hex())

	_, ok = ParseHex("rgba(0,0,0,0.1)")
	assert.False(t, ok)

	assert.InDelta(t, 21.0, ContrastRatio("#000000", "#ffffff"), 1e-9)
	assert.InDelta(t, 1.0, ContrastRatio("#123456", "#123456"), 1e-9)
	assert.Equal(t, 1.0, ContrastRatio("nope", "#ffffff"))
	assert.InDelta(t, ContrastRatio("#0f766e", "#ffffff"), ContrastRatio("#ffffff", "#0f766e"), 1e-12)
}

func TestPickTextOn(t *testing.T) {
	assert.Equal(t, DarkText, PickTextOn("#ffffff", 4.5))
	assert.Equal(t, LightText, PickTextOn("#0f172a", 4.5))
	assert.Equal(t, LightText, PickTextOn("#1e3a8a", 4.5))

	// Both reach 3.0 on mid gray; the higher contrast wins, not dark.
	bg := "#6b7280"
	require.GreaterOrEqual(t, ContrastRatio(DarkText, bg), 3.0)
	require.Greater(t, ContrastRatio(LightText, bg), ContrastRatio(DarkText, bg))
	assert.Equal(t, LightText, PickTextOn(bg, 3.0))

	for r := 0; r < 256; r += 15 {
		for g := 0; g < 256; g += 15 {
			for b := 0; b < 256; b += 15 {
				bg := RGB{uint8(r), uint8(g), uint8(b)}.Hex()
				text := PickTextOn(bg, 4.5)
				assert.GreaterOrEqual(t, ContrastRatio(text, bg), 4.5, "text %s on %s", text, bg)
			}
		}
	}
}

func TestExtractPrefersDominantAndDistinctColors(t *testing.T) {
	img := stripes(10,
		band{color.NRGBA{0x11, 0x55, 0x99, 255}, 40},
		band{color.NRGBA{0x12, 0x56, 0x98, 255}, 30}, // same bucket as the first
		band{color.NRGBA{0xee, 0x22, 0x00, 255}, 10},
		band{color.NRGBA{255, 255, 255, 255}, 50},   // background, skipped
		band{color.NRGBA{0x00, 0xff, 0x00, 10}, 50}, // transparent, skipped
	)

	res, err := Extract(context.Background(), img, WithMaxSize(500))
	require.NoError(t, err)
	assert.False(t, res.Fallback)
	assert.Equal(t, 2, res.Candidates)
	assert.Equal(t, []string{"#115599", "#ee2200"}, res.Colors)
}

func TestExtractDownscalesLongerEdge(t *testing.T) {
	img := stripes(300, band{color.NRGBA{0x33, 0x33, 0x33, 255}, 600})
	res, err := Extract(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, 96, res.Width)
	assert.Equal(t, 48, res.Height)
	assert.Equal(t, []string{"#333333"}, res.Colors)
}

func TestExtractWhiteImageFallsBack(t *testing.T) {
	img := stripes(4, band{color.NRGBA{255, 255, 255, 255}, 4})
	res, err := Extract(context.Background(), img)
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, FallbackPalette, res.Colors)
}

func TestExtractIsDeterministic(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetNRGBA(x, y, color.NRGBA{uint8(x * 4), uint8(y * 4), uint8((x + y) * 2), 255})
		}
	}
	first, err := Extract(context.Background(), img)
	require.NoError(t, err)
	for range 5 {
		again, err := Extract(context.Background(), img)
		require.NoError(t, err)
		assert.Equal(t, first.Colors, again.Colors)
	}
	assert.Len(t, first.Colors, 8)
}

func TestExtractDataURL(t *testing.T) {
	img := stripes(8, band{color.NRGBA{0x0f, 0x76, 0x6e, 255}, 8})
	res, err := ExtractDataURL(context.Background(), dataURL(t, img))
	require.NoError(t, err)
	assert.Equal(t, []string{"#007766"}, res.Colors)

	_, err = ExtractDataURL(context.Background(), "data:image/svg+xml;base64,PHN2Zy8+")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryPalette))

	_, err = ExtractDataURL(context.Background(), "data:image/png;base64,AAAA")
	require.Error(t, err)
	ce, ok := errors.AsClassified(err)
	require.True(t, ok)
	assert.True(t, ce.UserFacing())

	_, err = ExtractDataURL(context.Background(), "https://example.com/logo.png")
	assert.Error(t, err)
}

func TestExtractHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Extract(ctx, stripes(2, band{color.NRGBA{1, 2, 3, 255}, 2}))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildBrand(t *testing.T) {
	current := document.DefaultColors
	current.Text = ""
	current.TextLight = ""

	got := BuildBrand([]string{"#112233", "#445566", "#778899"}, current)
	assert.Equal(t, "#112233", got.Primary)
	assert.Equal(t, "#445566", got.Accent)
	assert.Equal(t, DarkText, got.Text)
	assert.Equal(t, document.DefaultColors.TextLight, got.TextLight)

	kept := BuildBrand([]string{"#abcdef"}, document.DefaultColors)
	assert.Equal(t, "#abcdef", kept.Primary)
	assert.Equal(t, document.DefaultColors.Accent, kept.Accent)
	assert.Equal(t, document.DefaultColors.Text, kept.Text)
}

func TestAssignBackgroundRederivesText(t *testing.T) {
	got := Assign(document.DefaultColors, "background", "#0f172a")
	assert.Equal(t, LightText, got.Text)
	assert.Equal(t, "rgba(255,255,255,0.72)", got.TextLight)

	got = Assign(got, "accent", "#ff0000")
	assert.Equal(t, "#ff0000", got.Accent)
	assert.Equal(t, got, Assign(got, "accent", ""))
}

func TestExtractorKeepsLatestOnly(t *testing.T) {
	ctx := context.Background()
	e := NewExtractor(nil, nil)
	slow := dataURL(t, stripes(4, band{color.NRGBA{0x22, 0x22, 0x22, 255}, 4}))
	fast := dataURL(t, stripes(4, band{color.NRGBA{0xcc, 0x00, 0x00, 255}, 4}))

	release := make(chan struct{})
	e.extract = func(ctx context.Context, src string, opts ...Option) (Result, error) {
		if src == slow {
			<-release
		}
		return ExtractDataURL(ctx, src, opts...)
	}

	first := e.Submit(ctx, slow)
	second := e.Submit(ctx, fast)

	res, err := second.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"#cc0000"}, res.Colors)

	close(release)
	_, err = first.Wait(ctx)
	assert.ErrorIs(t, err, ErrSuperseded)

	latest, ok := e.Latest()
	require.True(t, ok)
	assert.Equal(t, res, latest)
}

func TestExtractorSkipsUnchangedSource(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	e := NewExtractor(nil, nil)
	src := dataURL(t, stripes(4, band{color.NRGBA{0x10, 0x20, 0x30, 255}, 4}))

	ticket := e.SubmitIfChanged(ctx, src)
	require.NotNil(t, ticket)
	_, err := ticket.Wait(ctx)
	require.NoError(t, err)
	assert.Nil(t, e.SubmitIfChanged(ctx, src))
}

func TestFailedExtractionKeepsPreviousResult(t *testing.T) {
	ctx := context.Background()
	e := NewExtractor(nil, nil)
	ok := e.Submit(ctx, dataURL(t, stripes(4, band{color.NRGBA{0x10, 0x20, 0x30, 255}, 4})))
	_, err := ok.Wait(ctx)
	require.NoError(t, err)

	bad := e.Submit(ctx, "data:image/png;base64,AAAA")
	_, err = bad.Wait(ctx)
	require.Error(t, err)

	latest, found := e.Latest()
	require.True(t, found)
	assert.Equal(t, []string{"#112233"}, latest.Colors)
}
