package links

import (
	"bytes"
	"errors"
	"image/png"
	"testing"
)

func TestGenerateQRCode(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		size        int
		defaultSize int
		wantSize    int
		wantErr     bool
	}{
		{
			name:     "Valid QR Code",
			url:      "https://lnk.example/promo",
			size:     256,
			wantSize: 256,
		},
		{
			name:        "Configured Default",
			url:         "https://lnk.example/promo",
			defaultSize: 300,
			wantSize:    300,
		},
		{
			name:     "Built-in Default",
			url:      "https://lnk.example/promo",
			wantSize: QRDefaultSize,
		},
		{
			name:    "Size Too Small",
			url:     "https://lnk.example/promo",
			size:    100,
			wantErr: true,
		},
		{
			name:    "Size Too Large",
			url:     "https://lnk.example/promo",
			size:    5000,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateQRCode(tt.url, tt.size, tt.defaultSize)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidQRSize) {
					t.Errorf("GenerateQRCode() error = %v, want ErrInvalidQRSize", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GenerateQRCode() error = %v", err)
			}
			img, err := png.Decode(bytes.NewReader(got))
			if err != nil {
				t.Fatalf("output is not a PNG: %v", err)
			}
			if w := img.Bounds().Dx(); w != tt.wantSize {
				t.Errorf("width = %d, want %d", w, tt.wantSize)
			}
		})
	}
}
