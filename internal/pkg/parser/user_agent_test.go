package parser

import "testing"

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name string
		ua   string
		want Agent
	}{
		{
			name: "Chrome on Windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: Agent{OS: "Windows", Device: "desktop", Browser: "Chrome"},
		},
		{
			name: "Edge on Windows",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.2210.91",
			want: Agent{OS: "Windows", Device: "desktop", Browser: "Edge"},
		},
		{
			name: "Safari on macOS",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			want: Agent{OS: "macOS", Device: "desktop", Browser: "Safari"},
		},
		{
			name: "Safari on iPhone",
			ua:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Mobile/15E148 Safari/604.1",
			want: Agent{OS: "iOS", Device: "mobile", Browser: "Safari"},
		},
		{
			name: "Chrome on iPad",
			ua:   "Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) CriOS/120.0.6099.119 Mobile/15E148 Safari/604.1",
			want: Agent{OS: "iOS", Device: "tablet", Browser: "Chrome"},
		},
		{
			name: "Chrome on Android phone",
			ua:   "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.6099.144 Mobile Safari/537.36",
			want: Agent{OS: "Android", Device: "mobile", Browser: "Chrome"},
		},
		{
			name: "Android tablet",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-X710) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: Agent{OS: "Android", Device: "tablet", Browser: "Chrome"},
		},
		{
			name: "Samsung Internet",
			ua:   "Mozilla/5.0 (Linux; Android 13; SM-S918B) AppleWebKit/537.36 (KHTML, like Gecko) SamsungBrowser/23.0 Chrome/115.0.0.0 Mobile Safari/537.36",
			want: Agent{OS: "Android", Device: "mobile", Browser: "Samsung Internet"},
		},
		{
			name: "Brave reports as Chrome",
			ua:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: Agent{OS: "macOS", Device: "desktop", Browser: "Chrome"},
		},
		{
			name: "Firefox on Linux",
			ua:   "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			want: Agent{OS: "Linux", Device: "desktop", Browser: "Firefox"},
		},
		{
			name: "Chrome OS",
			ua:   "Mozilla/5.0 (X11; CrOS x86_64 14541.0.0) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			want: Agent{OS: "Chrome OS", Device: "desktop", Browser: "Chrome"},
		},
		{
			name: "Googlebot",
			ua:   "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			want: Agent{Device: "bot"},
		},
		{
			name: "Xbox",
			ua:   "Mozilla/5.0 (Windows NT 10.0; Win64; x64; Xbox; Xbox One) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/48.0.2564.82 Safari/537.36 Edge/13.10586",
			want: Agent{OS: "Windows", Device: "console", Browser: "Edge"},
		},
		{
			name: "Tizen TV",
			ua:   "Mozilla/5.0 (SMART-TV; LINUX; Tizen 6.0) AppleWebKit/537.36 (KHTML, like Gecko) 76.0.3809.146/6.0 TV Safari/537.36",
			want: Agent{OS: "Linux", Device: "tv", Browser: "Safari"},
		},
		{
			name: "Empty",
			ua:   "",
			want: Agent{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseUserAgent(tt.ua)
			if got.OS != tt.want.OS {
				t.Errorf("OS = %q, want %q", got.OS, tt.want.OS)
			}
			if got.Device != tt.want.Device {
				t.Errorf("Device = %q, want %q", got.Device, tt.want.Device)
			}
			if tt.want.Browser != "" && got.Browser != tt.want.Browser {
				t.Errorf("Browser = %q, want %q", got.Browser, tt.want.Browser)
			}
		})
	}
}

func TestNormaliseOS(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Windows 10 Windows", "Windows"},
		{"Intel Mac OS X 10_15_7 Macintosh", "macOS"},
		{"CPU iPhone OS 17_1 like Mac OS X iPhone", "iOS"},
		{"CPU OS 17_1 like Mac OS X iPad", "iOS"},
		{"Android 14 Linux", "Android"},
		{"Linux x86_64 X11", "Linux"},
		{"CrOS x86_64 14541.0.0 X11", "Chrome OS"},
		{"Windows Phone 10.0 Windows", "Windows Phone"},
		{"Tizen 6.0 SMART-TV", ""},
		{" ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normaliseOS(tt.name); got != tt.want {
				t.Errorf("normaliseOS(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}
