package commands

import (
	"context"
	"encoding/base64"
	"net/http"
	"os"
	"strings"
	"time"

	"git.home.luguber.info/inful/pagesmith/internal/document"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/pagesmith/internal/palette"
	"git.home.luguber.info/inful/pagesmith/internal/reducer"
)

// PaletteCmd extracts brand colors from an image file.
type PaletteCmd struct {
	Image   string        `arg:"" type:"existingfile" help:"Logo image (png, jpeg, gif or webp)"`
	Colors  int           `help:"Palette size (defaults to palette.colors from the config)"`
	Apply   bool          `help:"Store the image as the logo and derive the brand colors from it"`
	Timeout time.Duration `default:"10s" help:"Give up after this long"`
}

func (p *PaletteCmd) Run(g *Global) error {
	data, err := os.ReadFile(p.Image)
	if err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "read image").
			WithContext("path", p.Image).
			Build()
	}
	dataURL := toDataURL(data)

	ctx, cancel := context.WithTimeout(context.Background(), p.Timeout)
	defer cancel()

	colors := g.Config.Palette.Colors
	if p.Colors > 0 {
		colors = p.Colors
	}
	extractor := palette.NewExtractor(g.Logger, nil,
		palette.WithMaxSize(g.Config.Palette.MaxSize),
		palette.WithColors(colors))
	res, err := extractor.Submit(ctx, dataURL).Wait(ctx)
	if err != nil {
		return err
	}

	note := ""
	if res.Fallback {
		note = " (fallback: no usable pixels)"
	}
	printf(g, "%s %dx%d%s\n", p.Image, res.Width, res.Height, note)
	for _, c := range res.Colors {
		printf(g, "  %s\n", c)
	}
	if !p.Apply {
		return nil
	}

	s, err := openSession(ctx, g, nil)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	brand := palette.BuildBrand(res.Colors, s.store.GetState().Brand.Colors)
	s.store.Dispatch(reducer.Action{Type: reducer.SetLogo, Payload: dataURL})
	s.store.Dispatch(reducer.Action{Type: reducer.SetColors, Payload: colorsPatch(brand)})
	printf(g, "Applied logo and brand colors (primary %s, accent %s)\n", brand.Primary, brand.Accent)
	return nil
}

func toDataURL(data []byte) string {
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func colorsPatch(c document.Colors) reducer.ColorsPatch {
	return reducer.ColorsPatch{
		Primary:    &c.Primary,
		Accent:     &c.Accent,
		Background: &c.Background,
		Surface:    &c.Surface,
		Text:       &c.Text,
		TextLight:  &c.TextLight,
		Border:     &c.Border,
	}
}
