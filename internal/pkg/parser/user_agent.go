package parser

import (
	"strings"

	"github.com/mssola/useragent"
)

// Agent is a User-Agent normalised into the option sets link owners pick from.
// Fields are empty when they cannot be determined.
type Agent struct {
	OS      string
	Device  string
	Browser string
}

type token struct {
	needle string
	value  string
}

// Order matters: iOS user agents contain "Mac OS X", Android ones "Linux".
var osTokens = []token{
	{"windows phone", "Windows Phone"},
	{"iphone", "iOS"},
	{"ipad", "iOS"},
	{"ipod", "iOS"},
	{"android", "Android"},
	{"windows", "Windows"},
	{"cros ", "Chrome OS"},
	{"macintosh", "macOS"},
	{"mac os x", "macOS"},
	{"linux", "Linux"},
}

// Order matters: most Chromium derivatives also announce Chrome and Safari.
var browserTokens = []token{
	{"samsungbrowser", "Samsung Internet"},
	{"ucbrowser", "UC Browser"},
	{"vivaldi", "Vivaldi"},
	{"opr/", "Opera"},
	{"opera", "Opera"},
	{"edg/", "Edge"},
	{"edge/", "Edge"},
	{"edga/", "Edge"},
	{"edgios/", "Edge"},
	{"firefox", "Firefox"},
	{"fxios", "Firefox"},
	{"crios", "Chrome"},
	{"chrome", "Chrome"},
	{"chromium", "Chrome"},
	{"msie", "Internet Explorer"},
	{"trident/", "Internet Explorer"},
	{"safari", "Safari"},
}

var (
	tvTokens      = []string{"smart-tv", "smarttv", "googletv", "appletv", "apple tv", "hbbtv", "crkey", "roku", "aftb", "aftt", "aftm", "bravia", "netcast", "web0s"}
	consoleTokens = []string{"playstation", "xbox", "nintendo"}
	botTokens     = []string{"bot", "crawler", "spider", "slurp", "facebookexternalhit", "embedly", "preview"}
)

var knownBrowsers = map[string]string{
	"Chrome":            "Chrome",
	"Firefox":           "Firefox",
	"Safari":            "Safari",
	"Edge":              "Edge",
	"Opera":             "Opera",
	"Internet Explorer": "Internet Explorer",
	"Vivaldi":           "Vivaldi",
}

func ParseUserAgent(ua string) Agent {
	if strings.TrimSpace(ua) == "" {
		return Agent{}
	}
	parsed := useragent.New(ua)
	lower := strings.ToLower(ua)

	agent := Agent{
		OS:      osName(lower, parsed),
		Device:  deviceType(lower, parsed),
		Browser: firstToken(lower, browserTokens),
	}

	if agent.Browser == "" {
		name, _ := parsed.Browser()
		agent.Browser = knownBrowsers[name]
	}
	return agent
}

// osName prefers the OS and platform mssola pulled out of the comment
// section and falls back to scanning the whole header.
func osName(lower string, parsed *useragent.UserAgent) string {
	if os := normaliseOS(parsed.OS() + " " + parsed.Platform()); os != "" {
		return os
	}
	return firstToken(lower, osTokens)
}

func normaliseOS(name string) string {
	return firstToken(strings.ToLower(name), osTokens)
}

func deviceType(lower string, parsed *useragent.UserAgent) string {
	switch {
	case parsed.Bot() || containsAny(lower, botTokens):
		return "bot"
	case containsAny(lower, tvTokens) || (strings.Contains(lower, "tizen") && strings.Contains(lower, "tv")):
		return "tv"
	case containsAny(lower, consoleTokens):
		return "console"
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")):
		return "tablet"
	case parsed.Mobile() || strings.Contains(lower, "mobi") || strings.Contains(lower, "iphone") || strings.Contains(lower, "ipod"):
		return "mobile"
	}
	return "desktop"
}

func firstToken(lower string, tokens []token) string {
	for _, t := range tokens {
		if strings.Contains(lower, t.needle) {
			return t.value
		}
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
