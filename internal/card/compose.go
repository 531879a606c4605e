package card

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/font"

	"github.com/xaenox/gamer-card/internal/analysis"
	"github.com/xaenox/gamer-card/internal/models"
)

const (
	margin     = 30
	badgeSize  = 48
	barHeight  = 22
	barSpacing = 52
)

// Compose draws the shareable 600x900 card. portrait may be nil, in which case
// the tier fallback portrait is used.
func Compose(p models.Personality, s models.AnalysisSummary, portrait image.Image, tier models.Tier) (*image.RGBA, error) {
	theme := ThemeFor(tier)
	img := image.NewRGBA(image.Rect(0, 0, CardWidth, CardHeight))
	fill(img, img.Bounds(), theme.Background)

	if portrait == nil {
		fb, err := FallbackPortrait(tier)
		if err != nil {
			return nil, err
		}
		portrait = fb
	}
	draw.Draw(img, image.Rect(0, 0, CardWidth, PortraitHeight), portrait, portrait.Bounds().Min, draw.Src)
	fill(img, image.Rect(0, PortraitHeight, CardWidth, PortraitHeight+4), theme.Accent)

	faces, err := newFaces()
	if err != nil {
		return nil, err
	}
	defer faces.close()

	drawBadge(img, string(tier), CardWidth-margin-badgeSize, PortraitHeight+20, theme, faces.badge)

	title := textWriter{dst: img, face: faces.title, col: theme.Text}
	title.draw(title.fit(p.GamerType, CardWidth-2*margin-badgeSize-10), margin, PortraitHeight+58)

	body := textWriter{dst: img, face: faces.body, col: blend(theme.Text, theme.Background, 0.25)}
	body.draw(body.fit(p.OneLineSummary, CardWidth-2*margin), margin, PortraitHeight+96)

	drawStats(img, s, theme, faces)
	drawGenres(img, s.GenreDistribution, theme, faces)

	footer := textWriter{dst: img, face: faces.small, col: blend(theme.Text, theme.Background, 0.5)}
	footer.drawCentered("Steam Gamer Card", CardWidth/2, CardHeight-24)

	return img, nil
}

type faceSet struct {
	title, body, label, value, small, badge font.Face
}

func newFaces() (*faceSet, error) {
	fs := &faceSet{}
	specs := []struct {
		dst  *font.Face
		bold bool
		size float64
	}{
		{&fs.title, true, 30},
		{&fs.body, false, 20},
		{&fs.label, false, 15},
		{&fs.value, true, 24},
		{&fs.small, false, 13},
		{&fs.badge, true, 28},
	}

	for _, spec := range specs {
		f, err := face(spec.bold, spec.size)
		if err != nil {
			fs.close()
			return nil, err
		}
		*spec.dst = f
	}
	return fs, nil
}

func (fs *faceSet) close() {
	for _, f := range []font.Face{fs.title, fs.body, fs.label, fs.value, fs.small, fs.badge} {
		if f != nil {
			f.Close()
		}
	}
}

func drawStats(img *image.RGBA, s models.AnalysisSummary, theme Theme, faces *faceSet) {
	top := PortraitHeight + 130
	panel := image.Rect(margin, top, CardWidth-margin, top+90)
	fill(img, panel, blend(theme.Background, theme.Accent, 0.12))

	stats := []struct{ label, value string }{
		{"Playtime", humanize.FormatFloat("#,###.#", s.TotalPlaytimeHours) + "h"},
		{"Games", humanize.Comma(int64(s.TotalGames))},
		{"Played", humanize.Comma(int64(s.PlayedGames))},
	}

	colWidth := panel.Dx() / len(stats)
	label := textWriter{dst: img, face: faces.label, col: blend(theme.Text, theme.Background, 0.35)}
	value := textWriter{dst: img, face: faces.value, col: theme.Accent}
	for i, st := range stats {
		cx := panel.Min.X + colWidth*i + colWidth/2
		label.drawCentered(st.label, cx, top+30)
		value.drawCentered(st.value, cx, top+68)
	}
}

func drawGenres(img *image.RGBA, dist []models.GenreHours, theme Theme, faces *faceSet) {
	top := PortraitHeight + 260
	header := textWriter{dst: img, face: faces.label, col: blend(theme.Text, theme.Background, 0.35)}
	header.draw("TOP GENRES", margin, top)

	if len(dist) == 0 {
		header.draw("No genre data", margin, top+40)
		return
	}

	maxHours := dist[0].Hours
	label := textWriter{dst: img, face: faces.body, col: theme.Text}
	hours := textWriter{dst: img, face: faces.label, col: theme.Text}
	track := blend(theme.Background, theme.Accent, 0.15)
	fullWidth := CardWidth - 2*margin

	for i, g := range dist[:min(3, len(dist))] {
		y := top + 24 + i*barSpacing
		label.draw(label.fit(g.Genre, fullWidth-120), margin, y+2)

		barTop := y + 10
		fill(img, image.Rect(margin, barTop, margin+fullWidth, barTop+barHeight), track)
		w := fullWidth
		if maxHours > 0 {
			w = int(float64(fullWidth) * g.Hours / maxHours)
		}
		fill(img, image.Rect(margin, barTop, margin+max(w, 4), barTop+barHeight), blend(theme.Accent, theme.Background, float64(i)*0.2))

		text := fmt.Sprintf("%sh", humanize.FormatFloat("#,###.#", analysis.Round1(g.Hours)))
		hours.draw(text, CardWidth-margin-hours.width(text), y+2)
	}
}

func drawBadge(img *image.RGBA, tier string, x, y int, theme Theme, f font.Face) {
	r := badgeSize / 2
	cx, cy := x+r, y+r
	for py := y; py < y+badgeSize; py++ {
		for px := x; px < x+badgeSize; px++ {
			dx, dy := px-cx, py-cy
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(px, py, theme.Accent)
			}
		}
	}

	w := textWriter{dst: img, face: f, col: color.White}
	w.drawCentered(tier, cx, cy+10)
}

func fill(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// EncodePNG serialises an image for download or upload
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}
