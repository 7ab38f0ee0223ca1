package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"1.0", 100, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{"1.005", 101, true}, // half-up rounding
		{"12.344", 1234, true},
		{" 2.50 ", 250, true},
		{"3000", 300000, true},
		{"-50", 0, false},
		{"+50", 0, false},
		{"0", 0, false},
		{"0.004", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"1,234.50", 0, false},
		{"", 0, false},
		{"99999999999999999999", 0, false},
		{"100000000000", 10_000_000_000_000, true},
		{"100000000000.01", 0, false},
		{"90000000000000000", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else {
			if err == nil {
				t.Fatalf("%q expected error, got %d", tc.in, got.Cents)
			}
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := map[int64]string{
		1:      "0.01",
		150:    "1.50",
		300000: "3000.00",
		-250:   "-2.50",
	}
	for cents, want := range cases {
		if got := (Money{Cents: cents}).String(); got != want {
			t.Fatalf("Money{%d}.String() = %q, want %q", cents, got, want)
		}
	}
}

func TestFromFloat(t *testing.T) {
	if got := FromFloat(4000); got.Cents != 400000 {
		t.Fatalf("FromFloat(4000) = %d", got.Cents)
	}
	if got := FromFloat(12.345); got.Cents != 1235 {
		t.Fatalf("FromFloat(12.345) = %d", got.Cents)
	}
	if got := FromFloat(-3); got.Cents != 0 {
		t.Fatalf("negative should clamp to zero, got %d", got.Cents)
	}
}
