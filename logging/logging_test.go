package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestPrettyHandler_NestsGroupsAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("session", "abc").WithGroup("tick").Debug("moved",
		"n", 7,
		"interval", 90*time.Millisecond,
		"error", errors.New("boom"),
		slog.Group("head", "x", 20, "y", 40),
	)
	t.Logf("output:\n%s", buf.String())

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not one JSON object: %v", err)
	}
	if got["msg"] != "moved" || got["level"] != "DEBUG" || got["session"] != "abc" {
		t.Fatalf("top level fields wrong: %v", got)
	}
	tick, ok := got["tick"].(map[string]any)
	if !ok {
		t.Fatalf("tick group missing: %v", got)
	}
	if tick["n"] != float64(7) || tick["interval"] != "90ms" || tick["error"] != "boom" {
		t.Fatalf("tick group=%v", tick)
	}
	head, ok := tick["head"].(map[string]any)
	if !ok || head["x"] != float64(20) || head["y"] != float64(40) {
		t.Fatalf("head group=%v", tick["head"])
	}
	if !strings.Contains(buf.String(), "\n  ") {
		t.Fatalf("output is not indented")
	}
}

func TestPrettyHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, nil))
	log.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at default info level: %s", buf.String())
	}
	log.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn not written")
	}
}

func TestNew(t *testing.T) {
	for _, format := range []string{"text", "json", "pretty", ""} {
		var buf bytes.Buffer
		log, err := New(&buf, format, "warn")
		if err != nil {
			t.Fatalf("New(%q): %v", format, err)
		}
		log.Info("dropped")
		log.Error("kept", "score", 3)
		if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
			t.Fatalf("format %q level filtering wrong:\n%s", format, buf.String())
		}
	}

	if _, err := New(&bytes.Buffer{}, "xml", "info"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := New(&bytes.Buffer{}, "text", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
