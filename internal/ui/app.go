package ui

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"camsnap/internal/config"
	"camsnap/internal/ui/cwidget"
	"camsnap/processing/preview"
	"camsnap/processing/snapshot"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const noLocationText = "Save location: not selected"

type CaptureApp struct {
	fyneApp fyne.App
	mainWin fyne.Window

	config *config.Config
	saver  *snapshot.Saver
	loop   *preview.Loop
	slot   *preview.Slot
	logger *slog.Logger

	nameInput     *cwidget.Input[string]
	captureBtn    *widget.Button
	locationBtn   *widget.Button
	videoCanvas   *canvas.Image
	fpsLabel      *widget.Label
	locationLabel *widget.Label

	// ConfigPath is where Quit writes the config.
	ConfigPath string

	quitOnce sync.Once
	stopChan chan struct{}
}

// CreateApp wires the window around an already opened (or failed) camera.
// loop may be nil when the device never opened.
func CreateApp(a fyne.App, cfg *config.Config, saver *snapshot.Saver, loop *preview.Loop, slot *preview.Slot, logger *slog.Logger) *CaptureApp {
	if logger == nil {
		logger = slog.Default()
	}

	w := a.NewWindow("Live Stream Capture")
	w.Resize(fyne.NewSize(700, 620))

	return &CaptureApp{
		fyneApp:  a,
		mainWin:  w,
		config:   cfg,
		saver:    saver,
		loop:     loop,
		slot:     slot,
		logger:   logger,

		ConfigPath: config.DefaultConfigPath,
		stopChan:   make(chan struct{}),
	}
}

func (a *CaptureApp) Build() {
	a.nameInput = cwidget.NewTextInput("Enter Name:", "file name without extension")
	a.nameInput.OnSubmitted = func(string) { a.Capture() }

	a.captureBtn = widget.NewButtonWithIcon("Capture", theme.MediaRecordIcon(), a.Capture)
	a.captureBtn.Importance = widget.SuccessImportance

	a.locationBtn = widget.NewButtonWithIcon("Select Save Location", theme.FolderOpenIcon(), a.SelectSaveLocation)
	a.locationBtn.Importance = widget.HighImportance

	a.videoCanvas = canvas.NewImageFromImage(nil)
	a.videoCanvas.FillMode = canvas.ImageFillContain
	a.videoCanvas.SetMinSize(fyne.NewSize(640, 480))

	a.fpsLabel = widget.NewLabel(a.formatStats(a.loop))
	a.locationLabel = widget.NewLabel(noLocationText)
	a.locationLabel.Truncation = fyne.TextTruncateEllipsis

	controls := container.NewVBox(
		container.NewBorder(nil, nil, nil, a.captureBtn, a.nameInput),
		a.locationBtn,
	)

	videoContainer := container.NewBorder(
		nil,
		container.NewHBox(a.fpsLabel, widget.NewSeparator(), a.locationLabel),
		nil, nil,
		a.videoCanvas,
	)

	a.mainWin.SetContent(container.NewBorder(
		container.NewPadded(controls),
		nil, nil, nil,
		container.NewPadded(videoContainer),
	))
}

// Run shows the window and blocks until it is closed. startupErr is the
// camera open failure, if any; the preview then stays blank.
func (a *CaptureApp) Run(startupErr error) {
	a.Build()

	if startupErr != nil {
		a.ShowError(fmt.Errorf("failed to open webcam: %w", startupErr))
	}

	go a.runPlayerLoop()
	go a.runStatLoop()

	a.mainWin.SetCloseIntercept(a.Quit)

	a.mainWin.CenterOnScreen()
	a.mainWin.ShowAndRun()
}

// Quit saves the config, stops the UI loops and closes the window. Both the
// window close button and process signals end up here. Must run on the UI thread.
func (a *CaptureApp) Quit() {
	a.quitOnce.Do(func() {
		if err := a.config.Save(a.ConfigPath); err != nil {
			a.logger.Warn("save config", "error", err)
		}
		close(a.stopChan)
		a.mainWin.Close()
	})
}

// Done is closed once Quit has run.
func (a *CaptureApp) Done() <-chan struct{} {
	return a.stopChan
}

// Capture runs on the UI thread; validation happens in the saver.
func (a *CaptureApp) Capture() {
	path, err := a.saver.Save(a.nameInput.Text())
	if err != nil {
		if errors.Is(err, snapshot.ErrNameRequired) {
			a.nameInput.SetError(err)
		}
		a.ShowError(err)
		return
	}

	a.nameInput.SetError(nil)
	dialog.ShowInformation("Success", fmt.Sprintf("Image saved as %s", path), a.mainWin)
}

func (a *CaptureApp) SelectSaveLocation() {
	dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil {
			a.ShowError(err)
			return
		}
		if dir == nil {
			return
		}
		a.SetSaveLocation(dir.Path())
	}, a.mainWin)
}

func (a *CaptureApp) SetSaveLocation(dir string) {
	a.saver.SetDirectory(dir)
	a.locationLabel.SetText("Save location: " + a.saver.Directory())
	a.logger.Info("save location selected", "dir", dir)
}

func (a *CaptureApp) ShowError(err error) {
	dialog.ShowError(err, a.mainWin)
}

func (a *CaptureApp) showFrame(img image.Image) {
	a.videoCanvas.Image = img
	a.videoCanvas.Refresh()
}

func (a *CaptureApp) runPlayerLoop() {
	displayFPS := a.config.GetDisplayFPS()
	if displayFPS == 0 {
		displayFPS = 30
	}
	displayTicker := time.NewTicker(time.Second / time.Duration(displayFPS))
	defer displayTicker.Stop()

	var lastSeq uint64

	for {
		select {
		case <-displayTicker.C:
			snap := a.slot.Latest()
			if snap.Image == nil || snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence

			fyne.Do(func() {
				a.showFrame(snap.Image)
			})

		case <-a.stopChan:
			return
		}
	}
}

func (a *CaptureApp) runStatLoop() {
	uiTicker := time.NewTicker(time.Millisecond * 200)
	defer uiTicker.Stop()

	for {
		select {
		case <-uiTicker.C:
			text := a.formatStats(a.loop)
			fyne.Do(func() {
				a.fpsLabel.SetText(text)
			})
		case <-a.stopChan:
			return
		}
	}
}

func (a *CaptureApp) formatFPS(v uint) string {
	return fmt.Sprintf("FPS: %d", v)
}

func (a *CaptureApp) formatStats(loop *preview.Loop) string {
	if loop == nil || !loop.IsRunning() {
		return "Preview: off"
	}

	st := loop.Stats()
	return fmt.Sprintf("%s | frames: %d, skipped: %d", a.formatFPS(st.FPS), st.Presented, st.Skipped)
}
