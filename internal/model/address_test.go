package model

import "testing"

func TestSameAddress(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"0x1111111111111111111111111111111111111111", "0x1111111111111111111111111111111111111111", true},
		{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", true},
		{"0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{" 0x1111111111111111111111111111111111111111", "0x1111111111111111111111111111111111111111 ", true},
		{"0x1111111111111111111111111111111111111111", "0x2222222222222222222222222222222222222222", false},
		{"0xccc", "0xCCC", true},
		{"0xccc", "0xddd", false},
		{"not-hex", "also-not-hex", false},
	}
	for _, tc := range cases {
		if got := SameAddress(tc.a, tc.b); got != tc.want {
			t.Fatalf("SameAddress(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
