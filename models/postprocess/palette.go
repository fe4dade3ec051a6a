package postprocess

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

// vocColormap is the Pascal VOC label colormap.
var vocColormap = []string{
	"#000000", "#800000", "#008000", "#808000", "#000080", "#800080", "#008080",
	"#808080", "#400000", "#c00000", "#408000", "#c08000", "#400080", "#c00080",
	"#408080", "#c08080", "#004000", "#804000", "#00c000", "#80c000", "#004080",
}

// Palette is an ordered list of alpha-premultiplied sRGB colors. Class indices
// wrap around its length.
type Palette []color.RGBA

// NewPalette parses hex color strings ("#rrggbb") into an opaque palette.
//
// Arguments:
//   - hexes: The colors, one per class index.
//
// Returns:
//   - Palette: The parsed palette.
//   - error: An error if hexes is empty or any entry fails to parse.
func NewPalette(hexes ...string) (Palette, error) {
	return NewPaletteAlpha(0xff, hexes...)
}

// NewPaletteAlpha parses hex colors and applies a uniform alpha, premultiplying
// the color channels.
func NewPaletteAlpha(alpha uint8, hexes ...string) (Palette, error) {
	if len(hexes) == 0 {
		return nil, errors.New("palette needs at least one color")
	}
	p := make(Palette, 0, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, errors.Wrapf(err, "palette entry %d", i)
		}
		r, g, b := c.RGB255()
		p = append(p, color.RGBA{
			R: premultiply(r, alpha),
			G: premultiply(g, alpha),
			B: premultiply(b, alpha),
			A: alpha,
		})
	}
	return p, nil
}

// DefaultPalette returns the Pascal VOC colormap.
func DefaultPalette() Palette {
	p, err := NewPalette(vocColormap...)
	if err != nil {
		panic(err)
	}
	return p
}

// Color returns the color for class c, reusing colors cyclically.
func (p Palette) Color(c ClassIndex) color.RGBA {
	return p[p.index(c)]
}

func (p Palette) index(c ClassIndex) int {
	n := len(p)
	i := int(c) % n
	if i < 0 {
		i += n
	}
	return i
}

func premultiply(v, alpha uint8) uint8 {
	return uint8((uint32(v)*uint32(alpha) + 127) / 255)
}

// Pack packs a premultiplied color into a 32-bit pixel laid out as
// A<<24 | R<<16 | G<<8 | B.
func Pack(c color.RGBA) uint32 {
	return uint32(c.A)<<24 | uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// Unpack reverses Pack.
func Unpack(px uint32) color.RGBA {
	return color.RGBA{
		R: uint8(px >> 16),
		G: uint8(px >> 8),
		B: uint8(px),
		A: uint8(px >> 24),
	}
}
