package logger

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"linkroute/internal/platform/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"WARN":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"":      zerolog.InfoLevel,
		"loud":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWriter_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	w := writer(config.LoggingConfig{Output: "file", FilePath: path, MaxSizeMB: 1})
	lj, ok := w.(*lumberjack.Logger)
	if !ok {
		t.Fatalf("expected lumberjack writer, got %T", w)
	}
	if lj.Filename != path {
		t.Errorf("filename = %s", lj.Filename)
	}
}

func TestWriter_Text(t *testing.T) {
	if _, ok := writer(config.LoggingConfig{Format: "text"}).(zerolog.ConsoleWriter); !ok {
		t.Error("expected console writer for text format")
	}
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/x", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("status = %d", rr.Code)
	}
}
