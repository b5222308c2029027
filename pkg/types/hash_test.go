package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestHash_StringAndBytes(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Error("zero-value Hash should be zero")
	}
	if h.String() != strings.Repeat("0", 64) {
		t.Errorf("zero hash String() = %s", h.String())
	}

	h[0], h[31] = 0xab, 0xcd
	s := h.String()
	if !strings.HasPrefix(s, "ab") || !strings.HasSuffix(s, "cd") {
		t.Errorf("String() = %s, want ab...cd", s)
	}

	b := h.Bytes()
	b[0] = 0xFF
	if h[0] == 0xFF {
		t.Error("Bytes() should return a copy")
	}
}

func TestHexToHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262", false},
		{"too short", "abcd", true},
		{"invalid hex", strings.Repeat("g", 64), true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HexToHash(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("HexToHash(%q) should fail", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("HexToHash(%q): %v", tt.input, err)
			}
			if h.String() != tt.input {
				t.Errorf("roundtrip = %s, want %s", h, tt.input)
			}
		})
	}
}

func TestHash_JSON(t *testing.T) {
	h := Hash{0x01, 0x02}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatal(err)
	}
	var got Hash
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Errorf("JSON roundtrip = %s, want %s", got, h)
	}
}
