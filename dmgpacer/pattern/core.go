// Package pattern is a stand-in emulator core. It validates a real
// cartridge header and walks the ROM consuming plausible instruction timings,
// but instead of emulating the CPU it draws test patterns and a cursor the
// joypad can move. It exercises the run loop end to end without a real CPU.
package pattern

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/valerio/go-dmgpacer/dmgpacer"
	"github.com/valerio/go-dmgpacer/dmgpacer/joypad"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

// ErrFreed is returned by Step once the core has been freed.
var ErrFreed = errors.New("pattern core used after free")

const (
	cyclesPerLine = 456
	vblankLine    = 144
	linesPerFrame = 154

	patternCount    = 4
	tileSize        = 8
	stripeWidth     = 4
	animationFrames = 30
	stripeSpeed     = 2
	diagonalSpeed   = 4

	cursorSize      = 8
	titleBandHeight = 8
)

// instructionCycles approximates the cost of an opcode from its high nibble.
var instructionCycles = [16]int{
	4, 12, 8, 8, // 0x0_-0x3_: misc, 16-bit loads, inc/dec
	4, 4, 4, 8, // 0x4_-0x7_: register loads, (HL) stores
	4, 4, 4, 4, // 0x8_-0xB_: ALU
	20, 16, 12, 16, // 0xC_-0xF_: jumps, calls, stack
}

// Core implements dmgpacer.Emulator.
type Core struct {
	header *Header
	rom    []byte
	bios   []byte

	pc         uint16
	bootDone   bool
	lineCycles int
	ly         int
	frames     uint64

	joyp        *joypad.Register
	lastActions uint8
	pattern     int
	cursorX     int
	cursorY     int
	cursorShade video.Shade

	screen video.ScreenBuffer
	freed  bool
}

var _ dmgpacer.Emulator = (*Core)(nil)

// New builds a core for rom. bios is optional; when present it must be a
// full 256 byte boot ROM and execution starts inside it.
func New(bios, rom []byte) (*Core, error) {
	if len(bios) != 0 && len(bios) != biosSize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadBIOS, len(bios))
	}

	header, err := ParseHeader(rom)
	if err != nil {
		return nil, fmt.Errorf("failed to parse cartridge header: %w", err)
	}

	c := &Core{
		header:      header,
		rom:         rom,
		bios:        bios,
		pc:          entryPointAddress,
		bootDone:    len(bios) == 0,
		joyp:        joypad.NewRegister(),
		cursorX:     (video.Width - cursorSize) / 2,
		cursorY:     (video.Height - cursorSize) / 2,
		cursorShade: video.DarkGrey,
		screen:      video.NewScreenBuffer(),
	}
	if !c.bootDone {
		c.pc = 0
	}
	c.render()

	slog.Info("Loaded cartridge",
		"title", header.Title,
		"type", fmt.Sprintf("0x%02X", header.CartType),
		"romSize", header.ROMSize(),
		"bios", len(bios) > 0)
	return c, nil
}

// Factory adapts New to dmgpacer.Factory.
func Factory(bios, rom []byte) (dmgpacer.Emulator, error) {
	c, err := New(bios, rom)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Core) Step() (int, error) {
	if c.freed {
		return 0, ErrFreed
	}

	op := c.fetch()
	cycles := instructionCycles[op>>4]
	c.advance(cycles)
	return cycles, nil
}

func (c *Core) CanvasBuffer(buf []byte) {
	copy(buf, c.screen)
}

func (c *Core) SetJoypad(state joypad.State) {
	c.joyp.Load(state)
}

func (c *Core) Free() {
	if c.freed {
		slog.Warn("Pattern core freed twice", "title", c.header.Title)
		return
	}
	c.freed = true
	c.screen = nil
	slog.Debug("Pattern core freed", "title", c.header.Title, "frames", c.frames)
}

func (c *Core) Header() *Header {
	return c.header
}

// Frames returns the number of vblanks reached so far.
func (c *Core) Frames() uint64 {
	return c.frames
}

func (c *Core) Pattern() int {
	return c.pattern
}

func (c *Core) Cursor() (x, y int) {
	return c.cursorX, c.cursorY
}

func (c *Core) fetch() byte {
	if !c.bootDone {
		op := c.bios[c.pc]
		c.pc++
		if c.pc == biosSize {
			c.bootDone = true
		}
		return op
	}

	op := c.rom[c.pc]
	c.pc++
	if int(c.pc) >= len(c.rom) {
		c.pc = entryPointAddress
	}
	return op
}

func (c *Core) advance(cycles int) {
	c.lineCycles += cycles
	for c.lineCycles >= cyclesPerLine {
		c.lineCycles -= cyclesPerLine
		c.ly++
		switch c.ly {
		case vblankLine:
			c.vblank()
		case linesPerFrame:
			c.ly = 0
		}
	}
}

func (c *Core) vblank() {
	c.frames++
	c.pollJoypad()
	c.render()
}

// pollJoypad reads P1 the way a game would: select a half, read the low
// nibble back active low.
func (c *Core) pollJoypad() {
	c.joyp.Write(0x20)
	dpad := ^c.joyp.Read() & 0x0F
	c.joyp.Write(0x10)
	actions := ^c.joyp.Read() & 0x0F
	c.joyp.Write(0x30)

	pressed := actions &^ c.lastActions
	c.lastActions = actions

	c.cursorX += int(dpad&0x01) - int(dpad>>1&0x01)
	c.cursorY += int(dpad>>3&0x01) - int(dpad>>2&0x01)
	c.cursorX = min(max(c.cursorX, 0), video.Width-cursorSize)
	c.cursorY = min(max(c.cursorY, titleBandHeight), video.Height-cursorSize)

	switch {
	case actions&0x01 != 0:
		c.cursorShade = video.Black
	case actions&0x02 != 0:
		c.cursorShade = video.White
	default:
		c.cursorShade = video.DarkGrey
	}

	if pressed&0x04 != 0 {
		c.pattern = (c.pattern + 1) % patternCount
		slog.Debug("Test pattern changed", "pattern", c.pattern)
	}
	if pressed&0x08 != 0 {
		c.cursorX = (video.Width - cursorSize) / 2
		c.cursorY = (video.Height - cursorSize) / 2
	}
}

func (c *Core) render() {
	step := int(c.frames / animationFrames)
	for y := 0; y < video.Height; y++ {
		for x := 0; x < video.Width; x++ {
			c.screen.Set(x, y, c.patternShade(x, y, step).RGBA())
		}
	}
	c.renderTitle()
	c.renderCursor()
}

func (c *Core) patternShade(x, y, step int) video.Shade {
	switch c.pattern {
	case 0: // checkerboard
		if ((x/tileSize)+(y/tileSize))%2 == 0 {
			return video.White
		}
		return video.Black
	case 1: // gradient
		return video.Shade(x * 4 / video.Width)
	case 2: // scrolling stripes
		if ((x+step*stripeSpeed)/stripeWidth)%2 == 0 {
			return video.White
		}
		return video.DarkGrey
	default: // scrolling diagonals
		if ((x+y+step*diagonalSpeed)/tileSize)%2 == 0 {
			return video.LightGrey
		}
		return video.DarkGrey
	}
}

// renderTitle draws the raw title bytes as a barcode along the top edge,
// one 8px column per byte, one row per bit.
func (c *Core) renderTitle() {
	title := c.rom[titleAddress : titleAddress+titleLength]
	for x := 0; x < video.Width; x++ {
		b := byte(0)
		if i := x / 8; i < len(title) {
			b = title[i]
		}
		for y := 0; y < titleBandHeight; y++ {
			shade := video.White
			if b&(0x80>>y) != 0 {
				shade = video.Black
			}
			c.screen.Set(x, y, shade.RGBA())
		}
	}
}

func (c *Core) renderCursor() {
	for y := c.cursorY; y < c.cursorY+cursorSize; y++ {
		for x := c.cursorX; x < c.cursorX+cursorSize; x++ {
			c.screen.Set(x, y, c.cursorShade.RGBA())
		}
	}
}
