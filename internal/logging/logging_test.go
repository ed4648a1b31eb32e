package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Expected info to be filtered, got %q", buf.String())
	}

	logger.Warn().Str("step", "patient").Msg("visible")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "preauth-service" {
		t.Errorf("Expected service field, got %v", entry["service"])
	}
	if entry["step"] != "patient" {
		t.Errorf("Expected step field, got %v", entry["step"])
	}
}

func TestNewWithWriter_UnknownLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "chatty")

	logger.Debug().Msg("hidden")
	logger.Info().Msg("visible")

	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Errorf("Expected exactly one line, got %q", buf.String())
	}
}
