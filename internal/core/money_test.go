package core

import "testing"

func TestParseDecimalToCents(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.34", 1234, false},
		{"12,34", 1234, false},
		{"12.345", 1234, false}, // third decimal rounds half-up
		{"12.346", 1235, false},
		{"0,5", 50, false},
		{"100", 10000, false},
		{"", 0, true},
		{"-3", 0, true},
		{"+3", 0, true},
		{"1.2.3", 0, true},
		{"abc", 0, true},
		{"0", 0, true}, // zero not allowed
	}
	for _, tc := range cases {
		got, err := ParseDecimalToCents(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDecimalToCents(%q) expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseDecimalToCents(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseDecimalToCents(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCentsFromEuros(t *testing.T) {
	if got := CentsFromEuros(12.34); got != 1234 {
		t.Errorf("CentsFromEuros(12.34) = %d", got)
	}
	if got := CentsFromEuros(-12.345); got != -1235 {
		t.Errorf("CentsFromEuros(-12.345) = %d", got)
	}
	if got := CentsFromEuros(0); got != 0 {
		t.Errorf("CentsFromEuros(0) = %d", got)
	}
}
