package jwt

import (
	"testing"
	"time"
)

func TestParseTTL(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30m", 30 * time.Minute},
		{"0s", 0},
		{"12h", 12 * time.Hour},
		{"1h30m", 90 * time.Minute},
		{"1d", 24 * time.Hour},
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"1y", 365 * 24 * time.Hour},
	}

	for _, tc := range cases {
		got, err := ParseTTL(tc.in)
		if err != nil {
			t.Fatalf("ParseTTL(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseTTL(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseTTLInvalid(t *testing.T) {
	for _, in := range []string{"", "y", "xd", "-1y", "1.5y", "10"} {
		if _, err := ParseTTL(in); err == nil {
			t.Fatalf("ParseTTL(%q): expected error", in)
		}
	}
}
