package tray

import (
	"context"
	"fmt"
	"strings"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/beatcap/internal/app"
	"github.com/petems/beatcap/internal/audio"
	"github.com/petems/beatcap/internal/config"
)

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	// Menu items
	mStartStop *systray.MenuItem
	mDevices   *systray.MenuItem
	mSignal    *systray.MenuItem
	mStatus    *systray.MenuItem
}

// Status update methods for the app to call
func (u *UI) SetIdle() {
	u.updateStatus("idle")
	if u.mStartStop != nil {
		u.mStartStop.SetTitle("Start Capture")
	}
	u.setStatusLine("Not capturing")
}

func (u *UI) SetCapturing(device string) {
	u.updateStatus("capturing")
	if u.mStartStop != nil {
		u.mStartStop.SetTitle("Stop Capture")
	}
	u.setStatusLine("Capturing: " + device)
}

func (u *UI) SetError(err error) {
	u.updateStatus("error")
	u.setStatusLine("Error: " + err.Error())
}

func New(application *app.App, cfg *config.Config, version, commit string, log zerolog.Logger) *UI {
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log.With().Str("component", "tray").Logger(),
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

// Run blocks until Quit is selected or ctx is cancelled. It must be called
// from the main goroutine.
func (u *UI) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		systray.Quit()
	}()
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	u.updateStatus("idle")
	systray.SetTooltip("Live audio capture")

	// Build menu
	u.mStatus = systray.AddMenuItem("Not capturing", "Capture status")
	u.mStatus.Disable()
	u.mStartStop = systray.AddMenuItem("Start Capture", "Start or stop audio capture")
	u.mSignal = systray.AddMenuItem("Check Signal", "Show queued blocks and input level")
	systray.AddSeparator()

	u.mDevices = systray.AddMenuItem("Input Device", "Select audio device")
	u.buildDeviceMenu()

	systray.AddSeparator()
	mAbout := systray.AddMenuItem("About", "About beatcap")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	// Event loop
	go u.handleEvents(mAbout, mQuit)
}

func (u *UI) handleEvents(mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.toggleCapture()
		case <-u.mSignal.ClickedCh:
			u.checkSignal()
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (u *UI) buildDeviceMenu() {
	devices, err := u.app.Devices()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to list audio devices")
		u.mDevices.Disable()
		return
	}

	deviceItems := make(map[string]*systray.MenuItem, len(devices))
	selected := selectedDevice(devices, u.cfg.Audio.Device)

	for _, dev := range devices {
		item := u.mDevices.AddSubMenuItem(dev.Name, fmt.Sprintf("%d input channels", dev.MaxInputChannels))
		if dev.Name == selected {
			item.Check()
		}
		deviceItems[dev.Name] = item
	}

	// The map is read-only from here on.
	for name, item := range deviceItems {
		go func(deviceName string, menuItem *systray.MenuItem) {
			for range menuItem.ClickedCh {
				checkOnly(deviceItems, deviceName)
				u.selectDevice(deviceName)
			}
		}(name, item)
	}
}

type checkable interface {
	Check()
	Uncheck()
}

// checkOnly checks the item for name and unchecks all others.
func checkOnly[T checkable](items map[string]T, name string) {
	for n, item := range items {
		if n == name {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

// selectDevice persists the choice and moves a running capture to the new device.
func (u *UI) selectDevice(name string) {
	u.cfg.Audio.Device = name
	if err := u.cfg.Save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
	u.log.Info().Str("device", name).Msg("Changed audio device")

	if _, running := u.app.CurrentDevice(); running {
		u.app.Stop()
		if _, err := u.app.Start(name); err != nil {
			u.log.Error().Err(err).Msg("Failed to restart capture")
		}
	}
}

func (u *UI) toggleCapture() {
	if _, running := u.app.CurrentDevice(); running {
		u.app.Stop()
		return
	}
	if _, err := u.app.Start(u.cfg.Audio.Device); err != nil {
		u.log.Error().Err(err).Msg("Failed to start capture")
	}
}

func (u *UI) checkSignal() {
	n, err := u.app.CheckSignal()
	if err != nil {
		u.setStatusLine("Capture not started")
		return
	}
	if n == 0 {
		u.setStatusLine("No blocks received yet")
		return
	}

	levels := audio.Measure(u.app.DrainAvailableBlocks()...)
	u.setStatusLine(signalLine(n, levels))
	u.log.Info().Int("blocks", n).Float64("rms_db", levels.RMSdB).Float64("peak_db", levels.PeakdB).Msg("Signal check")
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("beatcap live audio capture")
}

func (u *UI) onExit() {
	u.app.Stop()
}

func (u *UI) setStatusLine(text string) {
	if u.mStatus != nil {
		u.mStatus.SetTitle(text)
	}
}

// updateStatus sets the tray title with microphone emoji and status indicator
func (u *UI) updateStatus(status string) {
	emoji := emojiForStatus(status)
	systray.SetTitle(fmt.Sprintf("🎤 %s", emoji))
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "capturing":
		return "🔴" // Red - capturing
	case "idle":
		return "🟢" // Green - ready/idle
	case "error":
		return "⚪️" // White - error
	default:
		return "🟢" // Green - default to ready
	}
}

// selectedDevice returns the device the configured filter resolves to, or the
// default device when the filter is empty or matches nothing.
func selectedDevice(devices []audio.Device, filter string) string {
	var fallback string
	for _, d := range devices {
		if d.Default && fallback == "" {
			fallback = d.Name
		}
	}
	if filter == "" {
		return fallback
	}

	needle := strings.ToLower(filter)
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), needle) {
			return d.Name
		}
	}
	return fallback
}

func signalLine(blocks int, levels audio.Levels) string {
	return fmt.Sprintf("Signal OK: %d blocks, %.1f dBFS RMS, %.1f dBFS peak", blocks, levels.RMSdB, levels.PeakdB)
}
