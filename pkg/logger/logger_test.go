package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"debug", DebugConfig(), false},
		{"production", ProductionConfig(), false},
		{"bad level", &Config{Level: "loud", Format: TextFormat, Output: StderrOutput}, true},
		{"bad format", &Config{Level: InfoLevel, Format: "xml", Output: StderrOutput}, true},
		{"bad output", &Config{Level: InfoLevel, Format: TextFormat, Output: "syslog"}, true},
		{"file without path", &Config{Level: InfoLevel, Format: TextFormat, Output: FileOutput}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWithFieldsArePreserved(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&Config{Level: DebugLevel, Format: JSONFormat, Output: StdoutOutput, DisableTimestamp: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.WithComponent("matcher").WithField("pass", "exact").Info("pass complete")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if entry["component"] != "matcher" {
		t.Errorf("expected component matcher, got %v", entry["component"])
	}
	if entry["pass"] != "exact" {
		t.Errorf("expected pass exact, got %v", entry["pass"])
	}
	if entry["msg"] != "pass complete" {
		t.Errorf("expected msg 'pass complete', got %v", entry["msg"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewWithWriter(&Config{Level: WarnLevel, Format: TextFormat, Output: StdoutOutput, DisableTimestamp: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("warn line missing: %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{" INFO ", InfoLevel, false},
		{"Warning", WarnLevel, false},
		{"warn", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q): expected error %v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != JSONFormat {
		t.Errorf("expected json, got %q (%v)", f, err)
	}
	if _, err := ParseFormat("logfmt"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestGlobalLogger(t *testing.T) {
	original := GetGlobalLogger()
	defer SetGlobalLogger(original)

	var buf bytes.Buffer
	l, err := NewWithWriter(&Config{Level: InfoLevel, Format: TextFormat, Output: StdoutOutput, DisableTimestamp: true}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	SetGlobalLogger(l)
	SetGlobalLogger(nil)

	GetGlobalLogger().WithComponent("cli").Info("configured")
	if !strings.Contains(buf.String(), "component=cli") {
		t.Errorf("expected global logger to be replaced, got %q", buf.String())
	}

	Discard().WithError(io.ErrUnexpectedEOF).Error("dropped")
}
