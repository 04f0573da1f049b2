// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},
		{0, 1},
		{1, 1},
		{8, 8},
		{10, 16},
		{2000, 2048},
		{3000, 4096},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			if got := NextPowerOfTwo(tt.n); got != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, got, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n    int
		want bool
	}{
		{2048, true},
		{1, true},
		{0, false},
		{-8, false},
		{2047, false},
	}

	for _, tt := range tests {
		if got := IsPowerOfTwo(tt.n); got != tt.want {
			t.Errorf("IsPowerOfTwo(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestLog2AndHalf(t *testing.T) {
	if got := Log2(2048); got != 11 {
		t.Errorf("Log2(2048) = %d, want 11", got)
	}
	if got := Log2(3000); got != 11 {
		t.Errorf("Log2(3000) = %d, want 11", got)
	}
	if got := Log2(0); got != -1 {
		t.Errorf("Log2(0) = %d, want -1", got)
	}
	if got := HalfOf(2048); got != 1024 {
		t.Errorf("HalfOf(2048) = %d, want 1024", got)
	}
}

func TestClampPowerOfTwo(t *testing.T) {
	tests := []struct{ in, want int }{
		{10, 32},
		{1000, 1024},
		{1 << 20, 32768},
	}
	for _, tt := range tests {
		if got := ClampPowerOfTwo(tt.in, 32, 32768); got != tt.want {
			t.Errorf("ClampPowerOfTwo(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = NextPowerOfTwo(1000)
		_ = IsPowerOfTwo(1024)
		_ = Log2(1024)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations, got %f", allocs)
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	for b.Loop() {
		_ = NextPowerOfTwo(3000)
	}
}
