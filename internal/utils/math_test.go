package utils

import (
	"math"
	"testing"
)

// TestRound covers the values that end up in health reports and stats rows
func TestRound(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  float64
	}{
		{name: "host cpu sample", input: 45.18333333, want: 45.18},
		{name: "container cpu over one core", input: 187.4999, want: 187.5},
		{name: "memory percent just under threshold", input: 84.996, want: 85},
		{name: "memory percent above threshold", input: 85.0149, want: 85.01},
		{name: "disk used gib", input: 412.3456, want: 412.35},
		{name: "idle container", input: 0.004, want: 0},
		{name: "integer passes through", input: 16, want: 16},
		{name: "zero", input: 0, want: 0},
		{name: "negative delta", input: -3.14159, want: -3.14},
		{name: "reclaimed bytes as gib", input: 1.5e9 / GiB, want: 1.4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Round(tt.input)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Round(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// TestRoundStable checks that rounding twice changes nothing
func TestRoundStable(t *testing.T) {
	for _, input := range []float64{1.23456789, 99.999999, 0.001, 1234567.89123, -45.678901} {
		result := Round(input)
		if again := Round(result); again != result {
			t.Errorf("Round(%v) = %v, but Round(Round(%v)) = %v", input, result, input, again)
		}
	}
}

func TestBytesToGB(t *testing.T) {
	tests := []struct {
		name  string
		input uint64
		want  float64
	}{
		{name: "zero", input: 0, want: 0},
		{name: "one gib", input: GiB, want: 1},
		{name: "eight gib", input: 8 * GiB, want: 8},
		{name: "half gib", input: 512 * MiB, want: 0.5},
		{name: "fractional", input: 1288490189, want: 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BytesToGB(tt.input); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("BytesToGB(%d) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		name        string
		part, total float64
		want        float64
	}{
		{name: "half", part: 50, total: 100, want: 50},
		{name: "third", part: 1, total: 3, want: 33.33},
		{name: "zero total", part: 5, total: 0, want: 0},
		{name: "negative total", part: 5, total: -1, want: 0},
		{name: "full", part: 8, total: 8, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.part, tt.total); math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percent(%v, %v) = %v, want %v", tt.part, tt.total, got, tt.want)
			}
		})
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		input uint64
		want  string
	}{
		{0, "0B"},
		{512, "512B"},
		{KiB, "1.00KiB"},
		{48 * MiB, "48.00MiB"},
		{3 * GiB / 2, "1.50GiB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := HumanBytes(tt.input); got != tt.want {
				t.Errorf("HumanBytes(%d) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// BenchmarkRound benchmarks the rounding function
func BenchmarkRound(b *testing.B) {
	values := []float64{1.23456789, 99.999999, 0.001, 1234567.89123, -45.678901}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Round(values[i%len(values)])
	}
}
