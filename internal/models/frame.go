package models

import (
	"image"
)

const BytesPerPixel = 3

// Frame is one raster pulled from the camera, 8-bit channels in BGR order.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

func (f *Frame) Stride() int {
	return f.Width * BytesPerPixel
}

func (f *Frame) Empty() bool {
	return f == nil || f.Width <= 0 || f.Height <= 0 || len(f.Pix) < f.Width*f.Height*BytesPerPixel
}

// ToRGBA reorders the channels into an opaque RGBA image for fyne and the encoders.
func (f *Frame) ToRGBA() *image.RGBA {
	if f.Empty() {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))

	for y := 0; y < f.Height; y++ {
		src := f.Pix[y*f.Stride() : (y+1)*f.Stride()]
		dst := img.Pix[y*img.Stride : y*img.Stride+f.Width*4]

		for x := 0; x < f.Width; x++ {
			b, g, r := src[x*3], src[x*3+1], src[x*3+2]
			dst[x*4] = r
			dst[x*4+1] = g
			dst[x*4+2] = b
			dst[x*4+3] = 0xff
		}
	}

	return img
}
