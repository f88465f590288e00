package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/p1m/productivity-suite/internal/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	l := Component(NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf), "auth")

	l.Info().Str("email", "alice@x.com").Msg("login")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected json output, got %q: %v", buf.String(), err)
	}
	if entry[FieldComponent] != "auth" {
		t.Fatalf("component = %v, want auth", entry[FieldComponent])
	}
	if entry["message"] != "login" {
		t.Fatalf("message = %v, want login", entry["message"])
	}
}

func TestNewWithWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf)

	l.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	l.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be written")
	}
}

func TestNewWithWriterInvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(config.LogConfig{Level: "loud", Format: "json"}, &buf)

	l.Debug().Msg("dropped")
	l.Info().Msg("kept")

	if bytes.Contains(buf.Bytes(), []byte("dropped")) {
		t.Fatalf("debug should be filtered at info level")
	}
	if !bytes.Contains(buf.Bytes(), []byte("kept")) {
		t.Fatalf("info should be written")
	}
}
