package links

import (
	"errors"

	"github.com/skip2/go-qrcode"
)

const (
	QRMinSize     = 128
	QRMaxSize     = 2048
	QRDefaultSize = 512
)

var ErrInvalidQRSize = errors.New("invalid size: must be between 128 and 2048")

// GenerateQRCode renders shortURL as a PNG. A zero size falls back to
// defaultSize, or QRDefaultSize when that is unset too.
func GenerateQRCode(shortURL string, size, defaultSize int) ([]byte, error) {
	if size == 0 {
		size = defaultSize
	}
	if size == 0 {
		size = QRDefaultSize
	}

	if size < QRMinSize || size > QRMaxSize {
		return nil, ErrInvalidQRSize
	}

	qr, err := qrcode.New(shortURL, qrcode.Medium)
	if err != nil {
		return nil, err
	}

	return qr.PNG(size)
}
