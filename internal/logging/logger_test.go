package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestServerModeWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(ModeServer, &buf)

	logger.Info().Str("record_id", "upload-1").Msg("stored")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a JSON line, got %q: %v", buf.String(), err)
	}
	if entry["record_id"] != "upload-1" {
		t.Errorf("Expected record_id field, got %v", entry)
	}
	if entry["message"] != "stored" {
		t.Errorf("Expected message 'stored', got %v", entry["message"])
	}
}

func TestSetOutputRedirects(t *testing.T) {
	var first, second bytes.Buffer
	logger := NewLogger(ModeCLI, &first)

	logger.Infof("hello %s", "one")
	logger.SetOutput(&second)
	logger.Infof("hello %s", "two")

	if !strings.Contains(first.String(), "hello one") {
		t.Errorf("First writer missing entry: %q", first.String())
	}
	if strings.Contains(first.String(), "hello two") {
		t.Error("First writer should not receive entries after SetOutput")
	}
	if !strings.Contains(second.String(), "hello two") {
		t.Errorf("Second writer missing entry: %q", second.String())
	}
	if logger.Output() != &second {
		t.Error("Output() should return the current writer")
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbose, debug bool
		want           zerolog.Level
	}{
		{false, false, zerolog.WarnLevel},
		{true, false, zerolog.InfoLevel},
		{false, true, zerolog.DebugLevel},
		{true, true, zerolog.DebugLevel},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.verbose, tt.debug); got != tt.want {
			t.Errorf("LevelFor(%v, %v) = %v, want %v", tt.verbose, tt.debug, got, tt.want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNopLogger()
	logger.Errorf("nothing to see")
	logger.Warn().Msg("still nothing")
}
