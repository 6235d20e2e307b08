package input

import "github.com/valerio/go-dmgpacer/dmgpacer/joypad"

// KeyCode is the numeric code carried by a keyboard event.
type KeyCode int

const (
	KeyEnter      KeyCode = 13
	KeySpace      KeyCode = 32
	KeyArrowLeft  KeyCode = 37
	KeyArrowUp    KeyCode = 38
	KeyArrowRight KeyCode = 39
	KeyArrowDown  KeyCode = 40
	KeyX          KeyCode = 88
	KeyZ          KeyCode = 90
)

// KeyMap is the fixed key code to joypad button mapping.
var KeyMap = map[KeyCode]joypad.Button{
	KeyArrowRight: joypad.Right,
	KeyArrowLeft:  joypad.Left,
	KeyArrowUp:    joypad.Up,
	KeyArrowDown:  joypad.Down,
	KeyZ:          joypad.A,
	KeyX:          joypad.B,
	KeySpace:      joypad.Select,
	KeyEnter:      joypad.Start,
}

// KeyNames maps backend key names to key codes, so backends that report
// named keys can feed the router.
var KeyNames = map[string]KeyCode{
	"Enter": KeyEnter,
	"Space": KeySpace,
	"Left":  KeyArrowLeft,
	"Up":    KeyArrowUp,
	"Right": KeyArrowRight,
	"Down":  KeyArrowDown,
	"x":     KeyX,
	"z":     KeyZ,
}

// Lookup returns the button mapped to code, if any.
func Lookup(code KeyCode) (joypad.Button, bool) {
	b, ok := KeyMap[code]
	return b, ok
}
