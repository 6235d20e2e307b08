package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend"
	"github.com/valerio/go-dmgpacer/dmgpacer/backend/terminal/render"
	"github.com/valerio/go-dmgpacer/dmgpacer/debug"
	"github.com/valerio/go-dmgpacer/dmgpacer/input"
	"github.com/valerio/go-dmgpacer/dmgpacer/input/action"
	"github.com/valerio/go-dmgpacer/dmgpacer/timing"
	"github.com/valerio/go-dmgpacer/dmgpacer/video"
)

const (
	refreshInterval = time.Second / 60

	// Terminals report key repeats but never releases, so a held key is
	// considered released once no repeat arrived for this long. Slightly
	// longer than a typical key repeat interval.
	keyTimeout = 100 * time.Millisecond

	statusHeight  = 11
	minTermWidth  = 80
	minTermHeight = 24
	logCapacity   = 100
)

var shadeColors = [4]tcell.Color{
	video.Black:     tcell.ColorBlack,
	video.DarkGrey:  tcell.ColorGray,
	video.LightGrey: tcell.ColorSilver,
	video.White:     tcell.ColorWhite,
}

// Backend renders frames as half-block characters with tcell and maps the
// keyboard onto the joypad and the run controls.
type Backend struct {
	newScreen func() (tcell.Screen, error)
	screen    tcell.Screen
	config    backend.Config

	logBuffer *render.LogBuffer
	logLevel  slog.Level
	handler   *input.Handler

	shared      *video.Shared
	unsubscribe func()

	keyStates  map[input.KeyCode]time.Time // last press or repeat of each held key
	showStatus bool
	now        func() time.Time
}

// New creates a backend drawing on the real terminal.
func New() *Backend {
	return NewWithScreen(nil)
}

// NewWithScreen creates a backend drawing on screen, which is initialized by
// Init. A nil screen means the real terminal.
func NewWithScreen(screen tcell.Screen) *Backend {
	b := &Backend{
		logBuffer: render.NewLogBuffer(logCapacity),
		logLevel:  slog.LevelInfo,
		now:       time.Now,
	}
	b.newScreen = func() (tcell.Screen, error) {
		if screen != nil {
			return screen, nil
		}
		return tcell.NewScreen()
	}
	return b
}

// Logger returns a logger writing into the logs panel. Components created
// before Init should log through it instead of the default logger, which
// would write over the screen.
func (t *Backend) Logger() *slog.Logger {
	return slog.New(render.NewHandler(t.logBuffer, slog.LevelDebug))
}

// Init takes over the terminal and routes slog output into the logs panel.
func (t *Backend) Init(config backend.Config) error {
	if config.Controls == nil || config.Router == nil || config.Publisher == nil {
		return errors.New("terminal backend needs controls, a router and a publisher")
	}
	t.config = config
	t.showStatus = config.ShowDebug
	t.keyStates = make(map[input.KeyCode]time.Time)
	t.handler = input.NewHandler()

	screen, err := t.newScreen()
	if err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	screen.EnableFocus()
	screen.SetStyle(tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorWhite))
	screen.Clear()
	t.screen = screen

	slog.SetDefault(t.Logger())

	t.shared = video.NewShared()
	t.unsubscribe = config.Publisher.Subscribe(t.shared.Update)

	slog.Info("Terminal backend initialized", "title", config.Title)
	return nil
}

// Run processes keyboard events and redraws the screen until the user quits
// or ctx is cancelled.
func (t *Backend) Run(ctx context.Context) error {
	if err := backend.Start(ctx, t.config); err != nil {
		slog.Error("Could not start emulation", "error", err)
	}

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go t.screen.ChannelEvents(events, quit)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if !t.handleEvent(ctx, ev) {
				return nil
			}
		case <-ticker.C:
			t.expireKeys()
			t.draw()
		}
	}
}

// Cleanup cleans up terminal resources
func (t *Backend) Cleanup() error {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	if t.config.Router != nil {
		t.config.Router.Release()
	}
	if t.screen != nil {
		slog.Info("Cleaning up terminal backend")
		t.screen.Fini()
	}
	return nil
}

// handleEvent returns false when the user asked to quit.
func (t *Backend) handleEvent(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return t.processKeyEvent(ctx, ev)
	case *tcell.EventResize:
		t.screen.Sync()
	case *tcell.EventFocus:
		if !ev.Focused {
			t.releaseAll()
		}
	}
	return true
}

var tcellKeyNames = map[tcell.Key]string{
	tcell.KeyEnter:  "Enter",
	tcell.KeyUp:     "Up",
	tcell.KeyDown:   "Down",
	tcell.KeyLeft:   "Left",
	tcell.KeyRight:  "Right",
	tcell.KeyEscape: "Escape",
	tcell.KeyF10:    "F10",
	tcell.KeyF12:    "F12",
}

func keyName(ev *tcell.EventKey) string {
	if ev.Key() != tcell.KeyRune {
		return tcellKeyNames[ev.Key()]
	}
	if ev.Rune() == ' ' {
		return "Space"
	}
	return string(unicode.ToLower(ev.Rune()))
}

func (t *Backend) processKeyEvent(ctx context.Context, ev *tcell.EventKey) bool {
	if ev.Key() == tcell.KeyCtrlC {
		return false
	}

	name := keyName(ev)
	if code, ok := input.KeyNames[name]; ok {
		t.pressJoypadKey(code)
		return true
	}

	act, ok := input.GetDefaultMapping(name)
	if !ok || !t.handler.Accept(act) {
		return true
	}
	slog.Debug("UI event", "key", name, "action", act)
	return t.handleAction(ctx, act)
}

func isDPad(code input.KeyCode) bool {
	switch code {
	case input.KeyArrowLeft, input.KeyArrowUp, input.KeyArrowRight, input.KeyArrowDown:
		return true
	}
	return false
}

// pressJoypadKey records a press or auto-repeat of a joypad key.
func (t *Backend) pressJoypadKey(code input.KeyCode) {
	if isDPad(code) {
		// Without release events a direction change would leave the old
		// direction held until it times out, so directions are exclusive.
		for held := range t.keyStates {
			if held != code && isDPad(held) {
				t.config.Router.KeyUp(held)
				delete(t.keyStates, held)
			}
		}
	}
	t.keyStates[code] = t.now()
	t.config.Router.KeyDown(code)
}

func (t *Backend) expireKeys() {
	now := t.now()
	for code, last := range t.keyStates {
		if now.Sub(last) >= keyTimeout {
			t.config.Router.KeyUp(code)
			delete(t.keyStates, code)
		}
	}
}

func (t *Backend) releaseAll() {
	clear(t.keyStates)
	t.config.Router.Release()
}

func (t *Backend) handleAction(ctx context.Context, act action.Action) bool {
	switch act {
	case action.EmulatorQuit:
		return false
	case action.EmulatorSnapshot:
		debug.TakeSnapshot(t.shared.Read())
	case action.EmulatorDebugToggle:
		t.showStatus = !t.showStatus
	case action.DebugLogLevelIncrease:
		t.changeLogLevel(1)
	case action.DebugLogLevelDecrease:
		t.changeLogLevel(-1)
	default:
		if _, err := backend.Dispatch(ctx, t.config.Controls, act); err != nil {
			slog.Warn("Action rejected", "error", err)
		}
	}
	return true
}

func (t *Backend) changeLogLevel(direction int) {
	oldLevel := t.logLevel
	switch direction {
	case -1:
		if t.logLevel < slog.LevelError {
			t.logLevel += 4
		}
	case 1:
		if t.logLevel > slog.LevelDebug {
			t.logLevel -= 4
		}
	}
	if oldLevel != t.logLevel {
		slog.Info("Log filter changed", "from", oldLevel, "to", t.logLevel)
	}
}

func (t *Backend) draw() {
	t.render()
	t.screen.Show()
}

func (t *Backend) render() {
	termWidth, termHeight := t.screen.Size()
	t.screen.Clear()
	if termWidth < minTermWidth || termHeight < minTermHeight {
		msg := fmt.Sprintf("Terminal too small! Need at least %dx%d", minTermWidth, minTermHeight)
		t.drawText(0, termHeight/2, termWidth, msg, tcell.StyleDefault.Foreground(tcell.ColorRed))
		return
	}

	dividerX := video.Width + 1
	panelX := dividerX + 2
	panelWidth := max(termWidth-panelX, 0)

	t.drawBorders(termWidth, termHeight, dividerX)
	t.drawGameBoy()

	logsY := 1
	if t.showStatus {
		t.drawStatus(panelX, 1, panelWidth)
		logsY = statusHeight + 2
	}
	t.drawLogs(panelX, logsY, panelWidth, termHeight)
}

func (t *Backend) drawBorders(termWidth, termHeight, dividerX int) {
	borderStyle := tcell.StyleDefault.Foreground(tcell.ColorWhite)
	titleStyle := tcell.StyleDefault.Foreground(tcell.ColorYellow)

	for y := 0; y < termHeight-1; y++ {
		t.screen.SetContent(dividerX, y, '│', nil, borderStyle)
	}

	t.drawText(1, 0, dividerX-1, fmt.Sprintf(" %s [%s] ", t.config.Title, t.config.Controls.State()), titleStyle)

	logsTitleY := 0
	if t.showStatus {
		t.drawText(dividerX+2, 0, termWidth, " Status ", titleStyle)
		for x := dividerX + 1; x < termWidth; x++ {
			t.screen.SetContent(x, statusHeight+1, '─', nil, borderStyle)
		}
		t.screen.SetContent(dividerX, statusHeight+1, '├', nil, borderStyle)
		logsTitleY = statusHeight + 1
	}
	t.drawText(dividerX+2, logsTitleY, termWidth, fmt.Sprintf(" Logs [%s] (-/+ filter) ", t.logLevel), titleStyle)

	help := " Arrows/Z/X/Space/Enter=joypad P=run/pause N=step F=frame R=reset F10=status F12=snapshot Q=quit "
	t.drawText(0, termHeight-1, termWidth, help, borderStyle)
}

func (t *Backend) drawGameBoy() {
	pixels, seq := t.shared.Read()
	if seq == 0 {
		t.drawText(1, video.Height/4, video.Width, "waiting for the first frame...", tcell.StyleDefault)
		return
	}

	for y := 0; y < video.Height; y += 2 {
		for x := 0; x < video.Width; x++ {
			glyph, fg, bg := render.HalfBlock(render.ShadeAt(pixels, x, y), render.ShadeAt(pixels, x, y+1))
			style := tcell.StyleDefault.Foreground(shadeColors[fg]).Background(shadeColors[bg])
			t.screen.SetContent(x, y/2+1, glyph, nil, style)
		}
	}
}

func (t *Backend) drawStatus(x, y, width int) {
	stats := t.config.Controls.Stats()
	lines := []string{
		fmt.Sprintf("State:      %s", t.config.Controls.State()),
		fmt.Sprintf("Frames:     %d", stats.Frames),
		fmt.Sprintf("Steps:      %d", stats.Steps),
		fmt.Sprintf("Cycles:     %d", stats.Cycles),
		fmt.Sprintf("Frame time: %v", stats.LastFrameTime),
		fmt.Sprintf("Next delay: %v", stats.LastDelay),
		fmt.Sprintf("Drift:      %v", stats.Drift),
		fmt.Sprintf("Target:     %.2f fps, %d cycles", timing.TargetFPS(), timing.CyclesPerFrame),
		fmt.Sprintf("Joypad:     %s", t.config.Router.Snapshot()),
	}
	if fault := t.config.Controls.Fault(); fault != nil {
		lines = append(lines, fmt.Sprintf("Fault:      %v (press r to reset)", fault))
	}

	style := tcell.StyleDefault.Foreground(tcell.ColorBlue)
	for i, line := range lines {
		t.drawText(x, y+i, width, line, style)
	}
}

func (t *Backend) drawLogs(x, y, width, termHeight int) {
	available := termHeight - y - 2
	if width <= 0 || available <= 0 {
		return
	}

	styles := map[slog.Level]tcell.Style{
		slog.LevelDebug: tcell.StyleDefault.Foreground(tcell.ColorGray),
		slog.LevelInfo:  tcell.StyleDefault.Foreground(tcell.ColorBlue),
		slog.LevelWarn:  tcell.StyleDefault.Foreground(tcell.ColorYellow),
		slog.LevelError: tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true),
	}

	for i, entry := range t.logBuffer.Recent(available, t.logLevel) {
		text := render.FormatLogEntry(entry)
		if len(text) > width && width > 3 {
			text = text[:width-3] + "..."
		}
		t.drawText(x, y+1+i, width, text, styles[entry.Level])
	}
}

// drawText writes s starting at (x, y), clipped to width cells.
func (t *Backend) drawText(x, y, width int, s string, style tcell.Style) {
	i := 0
	for _, ch := range s {
		if i >= width {
			return
		}
		t.screen.SetContent(x+i, y, ch, nil, style)
		i++
	}
}
