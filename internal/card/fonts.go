package card

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

type fontSet struct {
	regular *opentype.Font
	bold    *opentype.Font
}

var loadFonts = sync.OnceValues(func() (fontSet, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return fontSet{}, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return fontSet{}, fmt.Errorf("failed to parse bold font: %w", err)
	}
	return fontSet{regular: regular, bold: bold}, nil
})

func face(bold bool, size float64) (font.Face, error) {
	fonts, err := loadFonts()
	if err != nil {
		return nil, err
	}
	f := fonts.regular
	if bold {
		f = fonts.bold
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// textWriter draws text onto an image with a fixed face and colour
type textWriter struct {
	dst  *image.RGBA
	face font.Face
	col  color.Color
}

func (w textWriter) width(s string) int {
	return font.MeasureString(w.face, s).Ceil()
}

// draw writes s with its baseline at y
func (w textWriter) draw(s string, x, y int) {
	d := &font.Drawer{
		Dst:  w.dst,
		Src:  image.NewUniform(w.col),
		Face: w.face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func (w textWriter) drawCentered(s string, cx, y int) {
	w.draw(s, cx-w.width(s)/2, y)
}

// fit shortens s with an ellipsis until it is at most maxWidth pixels wide
func (w textWriter) fit(s string, maxWidth int) string {
	if w.width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && w.width(string(r)+"…") > maxWidth {
		r = r[:len(r)-1]
	}
	return string(r) + "…"
}
