package video

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillCanvas paints every pixel with the shade selected by its counter.
type fillCanvas struct {
	calls int
	shade Shade
}

func (f *fillCanvas) CanvasBuffer(buf []byte) {
	f.calls++
	ScreenBuffer(buf).Fill(f.shade.RGBA())
}

func TestPublisher_ReusesBuffer(t *testing.T) {
	p := NewPublisher()
	buf := p.Buffer()
	require.Len(t, buf, BufferSize)
	assert.Equal(t, 160*144*4, len(buf))

	canvas := &fillCanvas{shade: DarkGrey}
	assert.Equal(t, uint64(1), p.Publish(canvas))
	canvas.shade = LightGrey
	assert.Equal(t, uint64(2), p.Publish(canvas))

	assert.Same(t, &buf[0], &p.Buffer()[0], "buffer must be filled in place")
	assert.Equal(t, LightGrey.RGBA(), buf.At(80, 72))
	assert.Equal(t, uint64(2), p.Frames())
	assert.Equal(t, 2, canvas.calls)
}

func TestPublisher_Observers(t *testing.T) {
	p := NewPublisher()

	var first, second []uint64
	unsubscribe := p.Subscribe(func(f Frame) { first = append(first, f.Seq) })
	p.Subscribe(func(f Frame) {
		second = append(second, f.Seq)
		assert.Len(t, f.Pixels, BufferSize)
	})

	canvas := &fillCanvas{}
	p.Publish(canvas)
	unsubscribe()
	p.Publish(canvas)

	assert.Equal(t, []uint64{1}, first)
	assert.Equal(t, []uint64{1, 2}, second)
}

func TestShared_UpdateAndRead(t *testing.T) {
	shared := NewShared()
	p := NewPublisher()
	p.Subscribe(shared.Update)

	canvas := &fillCanvas{shade: Black}
	p.Publish(canvas)

	pixels, seq := shared.Read()
	assert.Equal(t, uint64(1), seq)
	assert.Equal(t, Black.RGBA(), pixels.At(0, 0))

	// Later publishes must not leak into a snapshot already handed out
	canvas.shade = White
	p.Publish(canvas)
	assert.Equal(t, Black.RGBA(), pixels.At(0, 0))

	pixels, seq = shared.Read()
	assert.Equal(t, uint64(2), seq)
	assert.Equal(t, White.RGBA(), pixels.At(159, 143))
}

func TestShadeOf(t *testing.T) {
	tests := []struct {
		name     string
		color    color.RGBA
		expected Shade
	}{
		{"black", Black.RGBA(), Black},
		{"dark grey", DarkGrey.RGBA(), DarkGrey},
		{"light grey", LightGrey.RGBA(), LightGrey},
		{"white", White.RGBA(), White},
		{"off palette", color.RGBA{0x10, 0xA0, 0x10, 0xFF}, LightGrey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ShadeOf(tt.color))
		})
	}
}

func TestScreenBuffer_SetAt(t *testing.T) {
	buf := NewScreenBuffer()
	c := color.RGBA{1, 2, 3, 4}
	buf.Set(159, 143, c)
	assert.Equal(t, c, buf.At(159, 143))
	assert.Equal(t, []byte{1, 2, 3, 4}, []byte(buf[BufferSize-4:]))
}
