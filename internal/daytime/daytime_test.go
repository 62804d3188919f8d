package daytime

import (
	"math"
	"testing"
)

func TestInWindow(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name            string
		now, start, end float64
		want            bool
	}{
		{name: "wrap late evening", now: 23.00, start: 19.50, end: 7.50, want: true},
		{name: "wrap midday", now: 12.00, start: 19.50, end: 7.50, want: false},
		{name: "wrap end inclusive", now: 7.50, start: 19.50, end: 7.50, want: true},
		{name: "wrap start inclusive", now: 19.50, start: 19.50, end: 7.50, want: true},
		{name: "wrap after midnight", now: 0.10, start: 19.50, end: 7.50, want: true},
		{name: "plain start inclusive", now: 7.00, start: 7.00, end: 19.00, want: true},
		{name: "plain end inclusive", now: 19.00, start: 7.00, end: 19.00, want: true},
		{name: "plain before", now: 6.99, start: 7.00, end: 19.00, want: false},
		{name: "plain after", now: 19.01, start: 7.00, end: 19.00, want: false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := InWindow(tt.now, tt.start, tt.end); got != tt.want {
				t.Fatalf("InWindow(%v, %v, %v) = %v, want %v", tt.now, tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestDecimalHour(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in, want float64
	}{
		{in: 19.0 + 50.0/60.0, want: 19.50},
		{in: 7.5, want: 7.30},
		{in: 0, want: 0},
		{in: 23.999, want: 23.59},
	}
	for _, tt := range tests {
		if got := DecimalHour(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Fatalf("DecimalHour(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
