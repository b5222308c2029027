package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetOutput_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, "debug")
	defer SetOutput(os.Stdout, "info")

	Ledger.Debug().Uint64("position", 7).Msg("accepted")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["component"] != "ledger" {
		t.Errorf("component = %v, want ledger", line["component"])
	}
	if line["position"] != float64(7) {
		t.Errorf("position = %v, want 7", line["position"])
	}
}

func TestInit_FileSink(t *testing.T) {
	file := filepath.Join(t.TempDir(), "privia.log")
	if err := Init("info", true, file); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer SetOutput(os.Stdout, "info")

	RPC.Info().Msg("hello")
	RPC.Debug().Msg("filtered")

	data, err := os.ReadFile(file)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("file missing info line: %s", data)
	}
	if strings.Contains(string(data), "filtered") {
		t.Errorf("debug line should be filtered at info level: %s", data)
	}
}
