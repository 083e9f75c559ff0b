package core

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Acqua Potabile  ", "acqua potabile"},
		{"ACQUA   POTABILE", "acqua potabile"},
		{"acqua potabile", "acqua potabile"},
		{"Elettricità", "elettricita"},
		{"  Pulizie\tScale ", "pulizie scale"},
		{"CAFFÈ", "caffe"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeName(tc.in); got != tc.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSameName(t *testing.T) {
	if !SameName("Acqua Potabile  ", "ACQUA   POTABILE") {
		t.Fatalf("expected match across case and whitespace")
	}
	if SameName("Acqua", "Ascensore") {
		t.Fatalf("unexpected match")
	}
}
