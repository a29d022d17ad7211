package capture

import (
	"errors"
	"fmt"

	"camsnap/internal/models"

	"gocv.io/x/gocv"
)

type GoCVBackend struct {
	width  int
	height int

	webcam *gocv.VideoCapture
	mat    gocv.Mat
}

func NewGoCVBackend(width, height int) *GoCVBackend {
	return &GoCVBackend{
		width:  width,
		height: height,
	}
}

func (b *GoCVBackend) Open(index int) error {
	cam, err := gocv.VideoCaptureDevice(index)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}

	if !cam.IsOpened() {
		cam.Close()
		return errors.New("device reports not opened")
	}

	if b.width > 0 && b.height > 0 {
		cam.Set(gocv.VideoCaptureFrameWidth, float64(b.width))
		cam.Set(gocv.VideoCaptureFrameHeight, float64(b.height))
	}

	b.webcam = cam
	b.mat = gocv.NewMat()

	return nil
}

func (b *GoCVBackend) Read() (*models.Frame, error) {
	if b.webcam == nil {
		return nil, errors.New("device not opened")
	}

	if ok := b.webcam.Read(&b.mat); !ok {
		return nil, errors.New("cannot read frame")
	}

	if b.mat.Empty() {
		return nil, errors.New("frame is empty")
	}

	return matToFrame(b.mat)
}

func (b *GoCVBackend) Close() error {
	if b.webcam == nil {
		return nil
	}

	b.mat.Close()
	err := b.webcam.Close()
	b.webcam = nil

	return err
}

func matToFrame(mat gocv.Mat) (*models.Frame, error) {
	width, height := mat.Cols(), mat.Rows()
	frame := models.NewFrame(width, height)
	data := mat.ToBytes()

	switch mat.Type() {
	case gocv.MatTypeCV8UC3:
		if len(data) < len(frame.Pix) {
			return nil, fmt.Errorf("short frame: %d bytes", len(data))
		}
		copy(frame.Pix, data)

	case gocv.MatTypeCV8UC4:
		if len(data) < width*height*4 {
			return nil, fmt.Errorf("short frame: %d bytes", len(data))
		}
		for i := 0; i < width*height; i++ {
			copy(frame.Pix[i*3:i*3+3], data[i*4:i*4+3])
		}

	case gocv.MatTypeCV8UC1:
		if len(data) < width*height {
			return nil, fmt.Errorf("short frame: %d bytes", len(data))
		}
		for i, v := range data[:width*height] {
			frame.Pix[i*3] = v
			frame.Pix[i*3+1] = v
			frame.Pix[i*3+2] = v
		}

	default:
		return nil, fmt.Errorf("unsupported mat type: %v", mat.Type())
	}

	return frame, nil
}
