package qrcode

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"
	goqrcode "github.com/skip2/go-qrcode"
)

// ErrNoCode is returned by ImageDecoder when a frame holds no readable symbol.
var ErrNoCode = errors.New("no QR code found in image")

// RenderPNG draws text as a size x size PNG QR symbol.
func RenderPNG(text string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := goqrcode.Encode(text, goqrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

// ImageDecoder reads QR symbols out of camera frames and uploaded photos.
type ImageDecoder struct {
	hints map[gozxing.DecodeHintType]interface{}
}

// NewImageDecoder creates a decoder that tries harder on noisy frames.
func NewImageDecoder() *ImageDecoder {
	return &ImageDecoder{
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

// Decode returns the text of the first QR symbol in img, or ErrNoCode.
func (d *ImageDecoder) Decode(img image.Image) (string, error) {
	if img == nil {
		return "", ErrNoCode
	}
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return "", fmt.Errorf("failed to read frame: %w", err)
	}

	result, err := zxingqr.NewQRCodeReader().Decode(bmp, d.hints)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoCode, err)
	}
	if result.GetText() == "" {
		return "", ErrNoCode
	}
	return result.GetText(), nil
}
