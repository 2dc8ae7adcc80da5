package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func TestNewLoggerDefaultsToStderr(t *testing.T) {
	if logger := NewLogger(Config{Level: InfoLevel}); logger.writer != os.Stderr {
		t.Error("logger should default to stderr so command output stays on stdout")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	levels := []LogLevel{DebugLevel, InfoLevel, WarnLevel, ErrorLevel}
	for ci, configured := range levels {
		for mi, message := range levels {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: configured, Output: buf})
			logger.log(message, "draft created", nil)

			if want := mi >= ci; (buf.Len() > 0) != want {
				t.Errorf("level %s logging %s: wrote=%v, want %v", configured, message, buf.Len() > 0, want)
			}
		}
	}
}

func TestJSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(Config{Level: DebugLevel, Format: JSONFormat, Output: buf})

	logger.Warn("Dropping decisions on unknown codes", map[string]interface{}{
		"release": "elbow_v1",
		"count":   2,
	})

	var entry logEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if entry.Level != "warn" || entry.Message != "Dropping decisions on unknown codes" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Timestamp == "" {
		t.Error("timestamp should be present")
	}
	if entry.Fields["release"] != "elbow_v1" || entry.Fields["count"] != float64(2) {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestHumanFormat(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]interface{}
		want   string
	}{
		{name: "no fields", want: "[info] Published version\n"},
		{
			name:   "fields sorted by key",
			fields: map[string]interface{}{"version": "v2", "codelist": "elbow"},
			want:   "[info] Published version | codelist=elbow, version=v2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewLogger(Config{Level: InfoLevel, Format: HumanFormat, Output: buf})
			logger.Info("Published version", tt.fields)

			if !strings.HasSuffix(buf.String(), tt.want) {
				t.Errorf("output = %q, want suffix %q", buf.String(), tt.want)
			}
		})
	}
}

func TestWith(t *testing.T) {
	buf := &bytes.Buffer{}
	root := NewLogger(Config{Level: InfoLevel, Format: JSONFormat, Output: buf})
	child := root.With(map[string]interface{}{"version": "v-1", "release": "r1"})

	child.Info("saved", map[string]interface{}{"release": "r2"})

	var entry struct {
		Fields map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry.Fields["version"] != "v-1" {
		t.Errorf("child logger lost base field: %v", entry.Fields)
	}
	if entry.Fields["release"] != "r2" {
		t.Errorf("entry fields should override base fields: %v", entry.Fields)
	}

	buf.Reset()
	root.Info("plain", nil)
	if strings.Contains(buf.String(), "version") {
		t.Errorf("With must not modify the parent logger: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"warn":    WarnLevel,
		"error":   ErrorLevel,
		"":        InfoLevel,
		"verbose": InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDiscard(t *testing.T) {
	// must not panic or write anywhere
	Discard().Error("ignored", map[string]interface{}{"k": "v"})
}
