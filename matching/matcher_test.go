package matching

import (
	"testing"

	"github.com/lgadye/warn-monitor/types"
)

func TestMatchesKnownVariants(t *testing.T) {
	cases := []struct {
		name      string
		observed  string
		target    string
		threshold float64
		want      bool
	}{
		{"suffix pbc", "Anthropic PBC", "Anthropic", 85, true},
		{"suffix reversed", "Anthropic", "Anthropic PBC", 85, true},
		{"suffix inc with punctuation", "Anthropic, Inc.", "Anthropic", 85, true},
		{"dotted llc", "Acme Widgets L.L.C.", "acme widgets", 100, true},
		{"word order", "Widgets Acme", "Acme Widgets", 100, true},
		{"different words", "Apple", "Alphabet", 85, false},
		{"unrelated", "OtherCo", "Anthropic", 85, false},
		{"extra substantive word", "Anthropic Robotics", "Anthropic", 85, false},
		{"diacritics", "Café Holdings", "Cafe Holdings", 100, true},
		{"empty observed", "", "Anthropic", 0, false},
		{"whitespace observed", "   ", "Anthropic", 0, false},
		{"punctuation only", "--", "Anthropic", 0, false},
		{"threshold zero", "Totally Different", "Anthropic", 0, true},
		{"suffix only names", "Inc", "Inc.", 100, true},
		{"leading entity word kept", "SA Recycling", "Recycling", 85, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Matches(c.observed, c.target, c.threshold)
			if got != c.want {
				t.Fatalf("Matches(%q, %q, %.0f) = %v; want %v (score %.2f)",
					c.observed, c.target, c.threshold, got, c.want, Score(c.observed, c.target))
			}
		})
	}
}

func TestMatchesIsReflexiveAndSymmetric(t *testing.T) {
	names := []string{"Anthropic", "Anthropic PBC", "Acme Inc", "Bank of the West", "Ross Stores, Inc.", "Apple", "Alphabet"}

	for _, a := range names {
		if !Matches(a, a, 100) {
			t.Fatalf("Matches(%q, %q, 100) should be true", a, a)
		}
		for _, b := range names {
			for _, th := range []float64{0, 50, 85, 100} {
				if Matches(a, b, th) != Matches(b, a, th) {
					t.Fatalf("Matches not symmetric for %q / %q at %.0f", a, b, th)
				}
			}
		}
	}
}

func TestScoreRequiresTokenSetEqualityForFullScore(t *testing.T) {
	if s := Score("Anthropic Labs", "Anthropic"); s >= 100 {
		t.Fatalf("expected score below 100 for differing token sets, got %.2f", s)
	}
	if s := Score("Labs Anthropic LLC", "anthropic labs"); s != 100 {
		t.Fatalf("expected 100 for equal token sets, got %.2f", s)
	}
}

func TestNormalizeName(t *testing.T) {
	cases := map[string]string{
		"Anthropic, PBC":       "anthropic",
		"  ACME   Widgets Inc": "acme widgets",
		"Procter & Gamble Co.": "and gamble procter",
		"Macy's":               "macys",
		"SA Recycling":         "recycling sa",
		"Co-Op Markets Co.":    "co markets op",
		"Acme Co Inc":          "acme",
		"":                     "",
	}
	for in, want := range cases {
		if got := NormalizeName(in); got != want {
			t.Fatalf("NormalizeName(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestFilterForTargetPreservesOrder(t *testing.T) {
	records := []types.ObservedRecord{
		{OrganizationName: "Anthropic PBC", NoticeDate: "2025-01-10"},
		{OrganizationName: "OtherCo", NoticeDate: "2025-01-11"},
		{OrganizationName: "", NoticeDate: "2025-01-12"},
		{OrganizationName: "Anthropic Inc", NoticeDate: "2025-01-17"},
	}

	got := FilterForTarget(records, "Anthropic", 85)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Record.NoticeDate != "2025-01-10" || got[1].Record.NoticeDate != "2025-01-17" {
		t.Fatalf("matches out of input order: %+v", got)
	}
	for _, m := range got {
		if m.Score < 85 || m.Score > 100 {
			t.Fatalf("score out of range: %.2f", m.Score)
		}
	}
}

func TestFilterForTargetNoMatchesIsEmpty(t *testing.T) {
	got := FilterForTarget([]types.ObservedRecord{{OrganizationName: "OtherCo"}}, "Anthropic", 85)
	if got == nil {
		t.Fatal("expected empty non-nil slice")
	}
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}
