package capture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"regexp"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"camsnap/internal/models"
)

const (
	firstFrameTimeout = 5 * time.Second
	minFreshTimeout   = 100 * time.Millisecond
)

type sequencedFrame struct {
	frame *models.Frame
	seq   uint64
}

// FFmpegWebcamStreamer reads raw bgr24 frames from an ffmpeg child process.
// Read hands out each frame at most once, waiting briefly for the next one
// like a blocking device read.
type FFmpegWebcamStreamer struct {
	stopOnce *sync.Once

	deviceName string
	width      int
	height     int
	targetFPS  uint

	cmd    *exec.Cmd
	latest atomic.Pointer[sequencedFrame]
	served atomic.Uint64
	arrive chan struct{}
	ready  chan struct{}
	done   chan struct{}
	err    atomic.Value

	freshTimeout time.Duration

	stopChan chan struct{}

	logger *slog.Logger
}

func NewFFmpegWebcam(deviceName string, targetFps uint, scaledWidth int, scaledHeight int, logger *slog.Logger) *FFmpegWebcamStreamer {
	if logger == nil {
		logger = slog.Default()
	}

	// wait up to three frame periods for a frame nobody has read yet
	fresh := minFreshTimeout
	if targetFps > 0 {
		if d := 3 * time.Second / time.Duration(targetFps); d > fresh {
			fresh = d
		}
	}

	return &FFmpegWebcamStreamer{
		deviceName:   deviceName,
		width:        scaledWidth,
		height:       scaledHeight,
		targetFPS:    targetFps,
		arrive:       make(chan struct{}, 1),
		freshTimeout: fresh,
		logger:       logger,
	}
}

func (ws *FFmpegWebcamStreamer) Open(index int) error {
	device := ws.deviceName
	if device == "" {
		var err error
		if device, err = resolveDevice(runtime.GOOS, index); err != nil {
			return err
		}
	}

	ws.ready = make(chan struct{})
	ws.done = make(chan struct{})
	ws.stopChan = make(chan struct{})
	ws.stopOnce = &sync.Once{}
	ws.latest.Store(nil)
	ws.served.Store(0)

	ws.cmd = exec.Command("ffmpeg", ffmpegArgs(runtime.GOOS, device, ws.targetFPS, ws.width, ws.height)...)

	var stderr bytes.Buffer
	ws.cmd.Stderr = &stderr

	stdout, err := ws.cmd.StdoutPipe()
	if err != nil {
		return err
	}

	if err := ws.cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w. Details: %s", err, stderr.String())
	}

	go ws.readLoop(stdout)

	select {
	case <-ws.ready:
		ws.logger.Debug("ffmpeg streaming", "device", device)
		return nil
	case <-ws.done:
		ws.Close()
		return fmt.Errorf("ffmpeg exited: %v. Details: %s", ws.loadErr(), stderr.String())
	case <-time.After(firstFrameTimeout):
		ws.Close()
		return errors.New("ffmpeg produced no frame")
	}
}

func (ws *FFmpegWebcamStreamer) readLoop(stdout io.ReadCloser) {
	defer close(ws.done)
	defer stdout.Close()

	frameSize := ws.width * ws.height * models.BytesPerPixel
	buffer := make([]byte, frameSize)
	var readyOnce sync.Once
	var seq uint64

	for {
		select {
		case <-ws.stopChan:
			return
		default:
		}

		if _, err := io.ReadFull(stdout, buffer); err != nil {
			select {
			case <-ws.stopChan:
			default:
				ws.err.Store(fmt.Errorf("read error: %w", err))
			}
			return
		}

		frame := models.NewFrame(ws.width, ws.height)
		copy(frame.Pix, buffer)
		seq++
		ws.latest.Store(&sequencedFrame{frame: frame, seq: seq})

		select {
		case ws.arrive <- struct{}{}:
		default:
		}

		readyOnce.Do(func() { close(ws.ready) })
	}
}

func (ws *FFmpegWebcamStreamer) Read() (*models.Frame, error) {
	timeout := time.NewTimer(ws.freshTimeout)
	defer timeout.Stop()

	for {
		if sf := ws.latest.Load(); sf != nil && sf.seq > ws.served.Load() {
			ws.served.Store(sf.seq)
			return sf.frame, nil
		}

		select {
		case <-ws.done:
			if err := ws.loadErr(); err != nil {
				return nil, err
			}
			return nil, errors.New("stream closed")
		case <-ws.arrive:
		case <-timeout.C:
			return nil, errors.New("no new frame")
		}
	}
}

func (ws *FFmpegWebcamStreamer) loadErr() error {
	if err, ok := ws.err.Load().(error); ok {
		return err
	}
	return nil
}

func (ws *FFmpegWebcamStreamer) stopCmdOut() {
	if ws.cmd != nil && ws.cmd.Process != nil {
		ws.cmd.Process.Kill()
		ws.cmd.Wait()
	}
}

func (ws *FFmpegWebcamStreamer) Close() error {
	if ws.stopOnce == nil {
		return nil
	}

	ws.stopOnce.Do(func() {
		close(ws.stopChan)
		ws.stopCmdOut()
	})
	return nil
}

func ffmpegArgs(goos, device string, fps uint, width, height int) []string {
	input := []string{"-f", "v4l2", "-i", device}
	if goos == "windows" {
		input = []string{"-f", "dshow", "-i", fmt.Sprintf("video=%s", device)}
	}

	return append(input,
		"-vf", fmt.Sprintf("fps=%d,scale=%d:%d", fps, width, height),
		"-f", "image2pipe",
		"-pix_fmt", "bgr24",
		"-vcodec", "rawvideo",
		"-",
	)
}

func resolveDevice(goos string, index int) (string, error) {
	if goos != "windows" {
		return fmt.Sprintf("/dev/video%d", index), nil
	}

	cameras, err := ListCameras()
	if err != nil {
		return "", err
	}

	if index >= len(cameras) {
		return "", fmt.Errorf("no camera at index %d (found %d)", index, len(cameras))
	}

	return cameras[index], nil
}

var dshowVideoRe = regexp.MustCompile(`"([^"]+)"\s+\(video\)`)

func parseDshowDevices(output string) []string {
	var cameras []string
	seen := make(map[string]bool)

	for _, m := range dshowVideoRe.FindAllStringSubmatch(output, -1) {
		name := m[1]
		if name != "dummy" && !seen[name] {
			cameras = append(cameras, name)
			seen[name] = true
		}
	}

	return cameras
}

func ListCameras() ([]string, error) {
	if runtime.GOOS != "windows" {
		return []string{"/dev/video0", "/dev/video1"}, nil
	}

	cmd := exec.Command("ffmpeg", "-list_devices", "true", "-f", "dshow", "-i", "dummy")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Run()

	return parseDshowDevices(stderr.String()), nil
}
