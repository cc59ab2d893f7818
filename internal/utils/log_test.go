package utils

import (
	"math"
	"testing"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{
			name:   "returns empty when limit non-positive",
			input:  "Kubernetes operator experience",
			limit:  0,
			expect: "",
		},
		{
			name:   "shorter than limit",
			input:  "Swift",
			limit:  10,
			expect: "Swift",
		},
		{
			name:   "truncates and adds ellipsis",
			input:  "Distributed systems",
			limit:  5,
			expect: "Distr...",
		},
		{
			name:   "trims surrounding whitespace",
			input:  "  SwiftUI  ",
			limit:  5,
			expect: "Swift...",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  float64
		expect float64
	}{
		{name: "in range", input: 3.5, expect: 3.5},
		{name: "below", input: -1, expect: 0},
		{name: "above", input: 9, expect: 7},
		{name: "nan", input: math.NaN(), expect: 0},
		{name: "positive infinity", input: math.Inf(1), expect: 7},
		{name: "negative infinity", input: math.Inf(-1), expect: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Clamp(tt.input, 0, 7); got != tt.expect {
				t.Fatalf("expected %v, got %v", tt.expect, got)
			}
		})
	}
}

func TestClampInt(t *testing.T) {
	t.Parallel()

	if got := ClampInt(0, 1, 12); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := ClampInt(40, 1, 12); got != 12 {
		t.Fatalf("expected 12, got %d", got)
	}
	if got := ClampInt(6, 1, 12); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
}
