package render

import "github.com/valerio/go-dmgpacer/dmgpacer/video"

// HalfBlock picks the glyph that shows two vertically stacked pixels in one
// terminal cell. The glyph is drawn in fg over bg.
func HalfBlock(top, bottom video.Shade) (glyph rune, fg, bg video.Shade) {
	switch {
	case top == bottom:
		return '█', top, top
	case top == video.White:
		return '▄', bottom, top
	default:
		return '▀', top, bottom
	}
}

// ShadeAt returns the shade of the pixel at (x, y), treating rows past the
// bottom edge as white.
func ShadeAt(buf video.ScreenBuffer, x, y int) video.Shade {
	if y >= video.Height {
		return video.White
	}
	return video.ShadeOf(buf.At(x, y))
}
