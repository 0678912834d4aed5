package doi

import (
	"strings"
	"testing"
)

func TestNormalizeForms(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"10.1000/xyz123":                          "10.1000/xyz123",
		"  10.1000/XYZ123  ":                      "10.1000/xyz123",
		"doi:10.1000/xyz123":                      "10.1000/xyz123",
		"DOI:10.1000/xyz123":                      "10.1000/xyz123",
		"https://doi.org/10.1000/xyz123":          "10.1000/xyz123",
		"http://dx.doi.org/10.1000/xyz123":        "10.1000/xyz123",
		"https://doi.org/doi:10.1000/xyz123":      "10.1000/xyz123",
		"doi.org/10.1234/ABC.def":                 "10.1234/abc.def",
		"":                                        "",
		"   ":                                     "",
		"not a doi":                               "",
		"https://example.org/10":                  "",
		"10.1000":                                 "",
	}

	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"10.1000/xyz123",
		"doi:10.1000/XYZ123",
		"https://doi.org/10.1000/182",
		"garbage",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestSafeFileName(t *testing.T) {
	t.Parallel()

	got := SafeFileName("10.1000/ABC-def.123")
	if got != "10_1000_abc_def_123" {
		t.Fatalf("unexpected file name: %s", got)
	}

	long := SafeFileName("10.1000/" + strings.Repeat("x", 200))
	if len(long) != 80 {
		t.Fatalf("expected capped length 80, got %d", len(long))
	}

	if SafeFileName("") != "report" {
		t.Fatalf("empty DOI should fall back to report")
	}
}
