// Package qr renders check deep links as QR code images.
package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/webgradeuz/fuelbonus/internal/application/port"
)

// Encoder implements port.QREncoder using skip2/go-qrcode
type Encoder struct {
	size int
}

// NewEncoder creates an encoder producing PNG images of the given pixel size
func NewEncoder(size int) *Encoder {
	if size <= 0 {
		size = 256
	}
	return &Encoder{size: size}
}

// Encode renders the payload as a PNG image
func (e *Encoder) Encode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, e.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// Verify interface compliance
var _ port.QREncoder = (*Encoder)(nil)
