package card

import (
	"image/color"

	"github.com/xaenox/gamer-card/internal/models"
)

const (
	CardWidth      = 600
	CardHeight     = 900
	PortraitHeight = 400
)

type Theme struct {
	Background color.RGBA
	Accent     color.RGBA
	Text       color.RGBA
}

var tierThemes = map[models.Tier]Theme{
	models.TierS: {rgb(0x1a0a2e), rgb(0xff6b35), rgb(0xffffff)},
	models.TierA: {rgb(0x0d1b2a), rgb(0x48bfe3), rgb(0xffffff)},
	models.TierB: {rgb(0x1b2838), rgb(0x66bb6a), rgb(0xffffff)},
	models.TierC: {rgb(0x2c2c2c), rgb(0x90a4ae), rgb(0xe0e0e0)},
	models.TierD: {rgb(0x3c3c3c), rgb(0x78909c), rgb(0xe0e0e0)},
}

// ThemeFor returns the palette of a tier; unknown tiers get the B palette
func ThemeFor(t models.Tier) Theme {
	if theme, ok := tierThemes[t]; ok {
		return theme
	}
	return tierThemes[models.TierB]
}

func rgb(hex uint32) color.RGBA {
	return color.RGBA{R: uint8(hex >> 16), G: uint8(hex >> 8), B: uint8(hex), A: 0xff}
}

// blend mixes a toward b; ratio 0 is a, 1 is b
func blend(a, b color.RGBA, ratio float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x)*(1-ratio) + float64(y)*ratio)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 0xff}
}
