// Package tray provides a system tray interface for ghostglove.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/ghostglove/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onSwitchMode func()
	onMonitor    func()
	onQuit       func()
	mode         session.Mode
	lastKey      string
	mu           sync.RWMutex

	// Menu items stored for later updates
	menuMode    *systray.MenuItem
	menuLastKey *systray.MenuItem
}

// New creates a new Tray showing RECORDING mode.
func New() *Tray {
	return &Tray{
		mode: session.ModeRecording,
	}
}

// OnSwitchMode sets the callback function to be called when "Switch Mode" is clicked.
func (t *Tray) OnSwitchMode(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSwitchMode = fn
}

// OnMonitor sets the callback function to be called when the monitor menu item is clicked.
func (t *Tray) OnMonitor(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMonitor = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until Quit is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Ghost Glove")
	systray.SetTooltip("Ghost Glove virtual keyboard")

	t.mu.Lock()
	t.menuMode = systray.AddMenuItem(modeTitle(t.mode), "Current mode")
	t.menuMode.Disable()
	t.menuLastKey = systray.AddMenuItem(lastKeyTitle(t.lastKey), "Last key sent")
	t.menuLastKey.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuSwitch := systray.AddMenuItem("Switch Mode", "Toggle between recording and typing")
	menuMonitor := systray.AddMenuItem("Open Monitor...", "Open the monitor in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Ghost Glove")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuSwitch.ClickedCh:
				t.handleSwitchMode()
			case <-menuMonitor.ClickedCh:
				t.handleMonitor()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				systray.Quit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// handleSwitchMode handles the "Switch Mode" click. The displayed mode only
// changes once the frame loop reports it through SetMode.
func (t *Tray) handleSwitchMode() {
	t.mu.RLock()
	callback := t.onSwitchMode
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleMonitor handles the monitor menu item click.
func (t *Tray) handleMonitor() {
	t.mu.RLock()
	callback := t.onMonitor
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// SetMode updates the mode display in the menu.
func (t *Tray) SetMode(mode session.Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mode == mode {
		return
	}
	t.mode = mode
	if t.menuMode != nil {
		t.menuMode.SetTitle(modeTitle(mode))
	}
}

// SetLastKey updates the last key display in the menu.
func (t *Tray) SetLastKey(label string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastKey = label
	if t.menuLastKey != nil {
		t.menuLastKey.SetTitle(lastKeyTitle(label))
	}
}

// Mode returns the displayed mode.
func (t *Tray) Mode() session.Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// Follow updates the menu from outcomes until the channel closes.
func (t *Tray) Follow(outcomes <-chan session.Outcome) {
	for out := range outcomes {
		t.SetMode(out.Mode)
		if n := len(out.Emitted); n > 0 {
			t.SetLastKey(out.Emitted[n-1])
		}
	}
}

func modeTitle(mode session.Mode) string {
	if mode == session.ModeTyping {
		return "● Mode: TYPING"
	}
	return "○ Mode: RECORDING"
}

func lastKeyTitle(label string) string {
	if label == "" {
		return "Last: none"
	}
	return "Last: " + label
}
