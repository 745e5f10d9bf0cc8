package logutil

import "testing"

func TestParseSlogLevel(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "info", "DEBUG", " warn ", "warning", "error"} {
		if _, err := parseSlogLevel(s); err != nil {
			t.Errorf("parseSlogLevel(%q) error = %v", s, err)
		}
	}
	if _, err := parseSlogLevel("verbose"); err == nil {
		t.Error("parseSlogLevel(verbose) expected error")
	}
}

func TestNewLoggerFromConfig(t *testing.T) {
	t.Parallel()

	if _, err := newLoggerFromConfig(loggerConfig{Format: "json", Level: "debug"}); err != nil {
		t.Fatalf("newLoggerFromConfig() error = %v", err)
	}
	if _, err := newLoggerFromConfig(loggerConfig{Format: "xml"}); err == nil {
		t.Fatal("newLoggerFromConfig() expected error for unknown format")
	}
}
