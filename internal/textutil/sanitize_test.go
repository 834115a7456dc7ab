package textutil

import "testing"

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Episode 1: The Start", "Episode 1- The Start"},
		{"AC/DC", "AC-DC"},
		{`a\b*c`, "a-b-c"},
		{`What? "Why" <now> |`, "What Why now"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTitleComposesAndCollapses(t *testing.T) {
	decomposed := "Cafe\u0301  talk\n\tshow"
	if got := NormalizeTitle(decomposed); got != "Caf\u00e9 talk show" {
		t.Fatalf("NormalizeTitle = %q", got)
	}
	if NormalizeTitle("Cafe\u0301") != NormalizeTitle("Caf\u00e9") {
		t.Fatal("expected composed and decomposed forms to match")
	}
}

func TestSafeSegment(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My Podcast", "My Podcast"},
		{"Ep. 4/5", "Ep. 4-5"},
		{"..", "fallback"},
		{"   ", "fallback"},
		{"???", "fallback"},
	}
	for _, tc := range cases {
		if got := SafeSegment(tc.in, "fallback"); got != tc.want {
			t.Fatalf("SafeSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSmartQuotes(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`The "Best" Episode`, "The “Best” Episode"},
		{"Don't Panic", "Don’t Panic"},
		{"'Quoted' start", "‘Quoted’ start"},
		{"Wait... what", "Wait… what"},
		{"Before--after", "Before—after"},
		{`("nested")`, "(“nested”)"},
		{"plain", "plain"},
	}
	for _, tc := range cases {
		if got := SmartQuotes(tc.in); got != tc.want {
			t.Fatalf("SmartQuotes(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
