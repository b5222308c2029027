package main

import (
	"testing"

	"github.com/privia-labs/privia/config"
	"github.com/privia-labs/privia/pkg/types"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		name  string
		input uint64
		want  string
	}{
		{"zero", 0, "0.00000000"},
		{"one unit", 1, "0.00000001"},
		{"one coin", config.Coin, "1.00000000"},
		{"fractional", 150_000_000, "1.50000000"},
		{"large", 2_000_000 * config.Coin, "2000000.00000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAmount(types.NewTokens(tt.input), config.Decimals)
			if got != tt.want {
				t.Errorf("formatAmount(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    uint64
		wantErr bool
	}{
		{"zero", "0", 0, false},
		{"whole", "12", 12 * config.Coin, false},
		{"fractional", "1.5", 150_000_000, false},
		{"smallest", "0.00000001", 1, false},
		{"too precise", "0.000000001", 0, true},
		{"negative", "-1", 0, true},
		{"garbage", "abc", 0, true},
		{"empty", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAmount(tt.input, config.Decimals)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(types.NewTokens(tt.want)) {
				t.Errorf("parseAmount(%q) = %s, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("parseTime: %v", err)
	}
	if got != 1767225600*1_000_000_000 {
		t.Errorf("parseTime RFC 3339 = %d", got)
	}
	if got, _ := parseTime("42"); got != 42 {
		t.Errorf("parseTime nanos = %d, want 42", got)
	}
	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error for unparseable time")
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		from, to *uint64
		wantErr  bool
	}{
		{"open", nil, nil, nil, false},
		{"from only", []string{"10"}, u64(10), nil, false},
		{"both", []string{"10", "20"}, u64(10), u64(20), false},
		{"reversed", []string{"20", "10"}, nil, nil, true},
		{"bad from", []string{"soon"}, nil, nil, true},
		{"bad to", []string{"10", "later"}, nil, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := parseRange(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseRange(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !equalPtr(from, tt.from) || !equalPtr(to, tt.to) {
				t.Errorf("parseRange(%v) = %v, %v", tt.args, from, to)
			}
		})
	}
}

func u64(v uint64) *uint64 { return &v }

func equalPtr(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
