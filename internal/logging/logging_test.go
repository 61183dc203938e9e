package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_HasComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("debug", "text", &buf); err != nil {
		t.Fatal(err)
	}

	logger := New("frames")
	logger.Info("hello")

	output := buf.String()
	if !strings.Contains(output, "component=frames") {
		t.Errorf("expected component=frames in output, got: %s", output)
	}
	if !strings.Contains(output, "hello") {
		t.Errorf("expected 'hello' in output, got: %s", output)
	}
}

func TestSetup_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("info", "json", &buf); err != nil {
		t.Fatal(err)
	}

	New("batch").Info("json check")

	output := buf.String()
	if !strings.Contains(output, `"level":"INFO"`) {
		t.Errorf("expected JSON level field, got: %s", output)
	}
	if !strings.Contains(output, `"component":"batch"`) {
		t.Errorf("expected JSON component field, got: %s", output)
	}
}

func TestSetup_LevelGating(t *testing.T) {
	var buf bytes.Buffer
	if err := Setup("warn", "text", &buf); err != nil {
		t.Fatal(err)
	}

	logger := New("gate")
	logger.Info("should be suppressed")
	logger.Warn("should appear")

	output := buf.String()
	if strings.Contains(output, "should be suppressed") {
		t.Error("Info message should be suppressed at warn level")
	}
	if !strings.Contains(output, "should appear") {
		t.Error("Warn message should appear at warn level")
	}
}

func TestSetup_Rejections(t *testing.T) {
	if err := Setup("loud", "text", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown level")
	}
	if err := Setup("info", "xml", &bytes.Buffer{}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestParseLevel_Aliases(t *testing.T) {
	for _, s := range []string{"warn", "WARNING", " Warn "} {
		lvl, err := ParseLevel(s)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", s, err)
		}
		if lvl.String() != "WARN" {
			t.Errorf("ParseLevel(%q) = %s, want WARN", s, lvl)
		}
	}
}
