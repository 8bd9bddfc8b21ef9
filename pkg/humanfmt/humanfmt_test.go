package humanfmt

import (
	"testing"
	"time"
)

func TestCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1.00K"},
		{1234, "1.23K"},
		{1_000_000, "1.00M"},
		{2_345_678, "2.35M"},
		{1_000_000_000, "1.00B"},
		{-5, "-5"},
	}

	for _, tt := range tests {
		if got := Count(tt.n); got != tt.want {
			t.Errorf("Count(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Nanosecond, "500ns"},
		{12 * time.Microsecond, "12.0µs"},
		{45 * time.Millisecond, "45.0ms"},
		{1230 * time.Millisecond, "1.23s"},
		{90 * time.Second, "1m30s"},
		{2 * time.Minute, "2m"},
		{135 * time.Minute, "2h15m"},
		{2 * time.Hour, "2h"},
	}

	for _, tt := range tests {
		if got := Duration(tt.d); got != tt.want {
			t.Errorf("Duration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestRate(t *testing.T) {
	if got := Rate(2000, 2*time.Second); got != "1.00K/s" {
		t.Errorf("Rate(2000, 2s) = %q, want %q", got, "1.00K/s")
	}
	if got := Rate(100, 0); got != "∞" {
		t.Errorf("Rate(100, 0) = %q, want ∞", got)
	}
}
