package badge

import (
	"github.com/skip2/go-qrcode"
)

// QRSize is the pixel edge of the rendered QR code. Large modules, a
// generous quiet zone and a pure black/white palette keep hand-held scanners
// fast in low light.
const QRSize = 320

// RenderQR encodes the bare registration number. The payload is deliberately
// not a JSON blob: fewer modules scan faster and more reliably at kiosks.
func RenderQR(registrationNumber string) ([]byte, error) {
	code, err := qrcode.New(registrationNumber, qrcode.High)
	if err != nil {
		return nil, err
	}
	code.DisableBorder = false
	return code.PNG(QRSize)
}
