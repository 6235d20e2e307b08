package video

import "image/color"

// LCD dimensions of the DMG.
const (
	Width         = 160
	Height        = 144
	BytesPerPixel = 4

	// BufferSize is the length of a ScreenBuffer in bytes.
	BufferSize = Width * Height * BytesPerPixel
)

// ScreenBuffer holds one frame of RGBA pixels, row-major, top to bottom.
type ScreenBuffer []byte

func NewScreenBuffer() ScreenBuffer {
	return make(ScreenBuffer, BufferSize)
}

// At returns the color of the pixel at (x, y).
func (s ScreenBuffer) At(x, y int) color.RGBA {
	i := (y*Width + x) * BytesPerPixel
	return color.RGBA{R: s[i], G: s[i+1], B: s[i+2], A: s[i+3]}
}

// Set writes the pixel at (x, y).
func (s ScreenBuffer) Set(x, y int, c color.RGBA) {
	i := (y*Width + x) * BytesPerPixel
	s[i] = c.R
	s[i+1] = c.G
	s[i+2] = c.B
	s[i+3] = c.A
}

// Fill paints the whole buffer with c.
func (s ScreenBuffer) Fill(c color.RGBA) {
	for i := 0; i+3 < len(s); i += BytesPerPixel {
		s[i] = c.R
		s[i+1] = c.G
		s[i+2] = c.B
		s[i+3] = c.A
	}
}

// Shade is one of the four DMG grey levels, 0 being black.
type Shade uint8

const (
	Black Shade = iota
	DarkGrey
	LightGrey
	White
)

var palette = [4]color.RGBA{
	Black:     {0x00, 0x00, 0x00, 0xFF},
	DarkGrey:  {0x4C, 0x4C, 0x4C, 0xFF},
	LightGrey: {0x98, 0x98, 0x98, 0xFF},
	White:     {0xFF, 0xFF, 0xFF, 0xFF},
}

// RGBA returns the display color of the shade.
func (s Shade) RGBA() color.RGBA {
	return palette[s&3]
}

// ShadeOf maps a pixel back to the nearest shade using its green channel.
// Colors outside the palette map to whichever level is closest.
func ShadeOf(c color.RGBA) Shade {
	switch {
	case c.G < 0x26:
		return Black
	case c.G < 0x72:
		return DarkGrey
	case c.G < 0xCC:
		return LightGrey
	default:
		return White
	}
}
