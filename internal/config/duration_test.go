package config

import (
	"strings"
	"testing"
	"time"
)

func TestParseDurationField(t *testing.T) {
	t.Parallel()

	cases := []struct {
		raw  string
		want time.Duration
		err  string
	}{
		{"", 0, ""},
		{" 24m ", 24 * time.Minute, ""},
		{"90", 90 * time.Second, ""},
		{"1.5", 1500 * time.Millisecond, ""},
		{"soon", 0, "not a duration"},
		{"-5s", 0, "negative"},
		{"-3", 0, "negative"},
	}
	for _, tc := range cases {
		got, err := ParseDurationField("world.day_length", tc.raw)
		if tc.err != "" {
			if err == nil || !strings.Contains(err.Error(), tc.err) || !strings.HasPrefix(err.Error(), "world.day_length: ") {
				t.Fatalf("%q: err=%v want %q", tc.raw, err, tc.err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("%q: got %v, %v want %v", tc.raw, got, err, tc.want)
		}
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()

	if d, err := ParseDurationOrDefault("storage.busy_timeout", "0", time.Second); err != nil || d != time.Second {
		t.Fatalf("zero: %v %v", d, err)
	}
	if d, err := ParseDurationOrDefault("storage.busy_timeout", "250ms", time.Second); err != nil || d != 250*time.Millisecond {
		t.Fatalf("set: %v %v", d, err)
	}
	if _, err := ParseDurationOrDefault("storage.busy_timeout", "x", time.Second); err == nil {
		t.Fatalf("bad value accepted")
	}
}
