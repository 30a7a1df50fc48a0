package geoip

import (
	"context"
	"errors"
	"testing"
)

func TestStaticResolver_Lookup(t *testing.T) {
	r, err := NewStaticResolver(map[string]Location{
		"203.0.113.0/24":  {Country: "Japan", CountryCode: "JP", TimeZone: "Asia/Tokyo"},
		"203.0.113.64/26": {Country: "South Korea", CountryCode: "KR", TimeZone: "Asia/Seoul"},
		"2001:db8::/32":   {Country: "Germany", CountryCode: "DE", TimeZone: "Europe/Berlin"},
	})
	if err != nil {
		t.Fatalf("NewStaticResolver: %v", err)
	}

	tests := []struct {
		ip      string
		want    string
		wantErr error
	}{
		{"203.0.113.5", "Japan", nil},
		{"203.0.113.70", "South Korea", nil},
		{"2001:db8::1", "Germany", nil},
		{"198.51.100.1", "", ErrNotFound},
		{"not-an-ip", "", ErrInvalidIP},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			loc, err := r.Lookup(context.Background(), tt.ip)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Lookup() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && loc.Country != tt.want {
				t.Errorf("Lookup() country = %s, want %s", loc.Country, tt.want)
			}
		})
	}
}

func TestStaticResolver_BadCIDR(t *testing.T) {
	if _, err := NewStaticResolver(map[string]Location{"nope": {}}); err == nil {
		t.Error("expected error for invalid network")
	}
}

func TestStaticResolver_CancelledContext(t *testing.T) {
	r, _ := NewStaticResolver(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Lookup(ctx, "203.0.113.5"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
