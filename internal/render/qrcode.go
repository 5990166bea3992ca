package render

import (
	"image"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSizePx = 64

// GenerateQRCodeImage returns a borderless QR code image for payload.
// If payload is empty, it returns (nil, nil).
func GenerateQRCodeImage(payload string, sizePx int) (image.Image, error) {
	if payload == "" {
		return nil, nil
	}
	if sizePx <= 0 {
		sizePx = defaultQRCodeSizePx
	}

	qrCode, err := qrcode.New(payload, qrcode.Low)
	if err != nil {
		return nil, err
	}
	qrCode.DisableBorder = true
	qrCode.ForegroundColor = Foreground
	qrCode.BackgroundColor = Background

	return qrCode.Image(sizePx), nil
}
