package textutil

import "testing"

func TestFold(t *testing.T) {
	cases := map[string]string{
		"Bogotá":          "bogota",
		"  BOGOTÁ  D.C. ": "bogota d.c.",
		"Medellín":        "medellin",
		"Ñuñoa":           "nunoa",
		"San Andrés":      "san andres",
		"":                "",
	}
	for input, want := range cases {
		if got := Fold(input); got != want {
			t.Fatalf("Fold(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEqualFold(t *testing.T) {
	if !EqualFold("Bogotá", "bogota") {
		t.Fatalf("expected accent-insensitive match")
	}
	if EqualFold("Bogotá", "Medellín") {
		t.Fatalf("expected different cities not to match")
	}
}
