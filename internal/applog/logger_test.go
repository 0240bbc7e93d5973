package applog

import "testing"

func TestParseLevel(t *testing.T) {
	cases := map[string]string{
		"debug":   "DEBUG",
		"DEBUG":   "DEBUG",
		"warn":    "WARN",
		"warning": "WARN",
		"error":   "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range cases {
		if got := parseLevel(in).String(); got != want {
			t.Errorf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNewHandler_FormatSelection(t *testing.T) {
	// json/text formats are explicit regardless of TTY detection.
	if h := newHandler(0, "json"); h == nil {
		t.Fatal("expected non-nil JSON handler")
	}
	if h := newHandler(0, "text"); h == nil {
		t.Fatal("expected non-nil text handler")
	}
	if h := newHandler(0, "pretty"); h == nil {
		t.Fatal("expected non-nil pretty handler")
	}
}

func TestNew_ReturnsUsableLogger(t *testing.T) {
	log := New("info", "json")
	if log == nil {
		t.Fatal("New returned nil logger")
	}
	// Should not panic when logging.
	log.Info("test message", "k", "v")
}
