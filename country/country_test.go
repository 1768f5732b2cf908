package country

import "testing"

func TestGroupCode(t *testing.T) {
	tests := []struct {
		group string
		want  string
	}{
		{"TR Sports", "TR"},
		{"[DE] Kino", "DE"},
		{"uk|news", "UK"},
		{"tr-belgeseller", "TR"},
		{"FR_Cinema", "FR"},
		{"US", "US"},
		{"Sports", ""},
		{"TRY Again", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := GroupCode(tt.group); got != tt.want {
			t.Errorf("GroupCode(%q) = %q, want %q", tt.group, got, tt.want)
		}
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		group string
		code  string
		want  bool
	}{
		{"TR Spor", "TR", true},
		{"tr spor", "TR", true},
		{"Turkiye Haber", "TR", true},
		{"TÜRKİYE Haber", "TR", true},
		{"Turkish Series", "TR", true},
		{"German Movies", "DE", true},
		{"Deutschland HD", "DE", true},
		{"United Kingdom News", "UK", true},
		{"Great Britain", "GB", true},
		{"USA Entertainment", "US", true},
		{"France 24", "FR", true},
		{"TR Spor", "DE", false},
		{"Sports", "TR", false},
		{"Stranger Things", "TR", false},
		{"Austria", "TR", false},
	}
	for _, tt := range tests {
		if got := Matches(tt.group, tt.code); got != tt.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", tt.group, tt.code, got, tt.want)
		}
	}
}

func TestMatchesSingleWordAliasIsTokenBound(t *testing.T) {
	// "turk" must match as a whole token, not as a substring of
	// another word.
	if Matches("Turkmenistan TV", "TR") {
		t.Error("turk alias matched inside another word")
	}
	if !Matches("Turk Filmleri", "TR") {
		t.Error("turk alias did not match as a token")
	}
}

func TestMatchesAny(t *testing.T) {
	if !MatchesAny("DE Kino", []string{"TR", "DE"}) {
		t.Error("MatchesAny missed DE")
	}
	if MatchesAny("Sports", []string{"TR", "DE"}) {
		t.Error("MatchesAny matched an unrelated group")
	}
	if MatchesAny("TR Spor", nil) {
		t.Error("MatchesAny with no codes must be false")
	}
}

func TestMatchesCacheStable(t *testing.T) {
	for i := 0; i < 3; i++ {
		if !Matches("Turkiye Haber", "TR") {
			t.Fatal("cached result changed")
		}
	}
}

func TestIsAdult(t *testing.T) {
	tests := []struct {
		group string
		want  bool
	}{
		{"Adult Movies", true},
		{"XXX", true},
		{"For Adults 18+", true},
		{"+18 Kanallar", true},
		{"Erotik", true},
		{"Sussex News", true},
		{"TR Spor", false},
		{"Kids", false},
	}
	for _, tt := range tests {
		if got := IsAdult(tt.group); got != tt.want {
			t.Errorf("IsAdult(%q) = %v, want %v", tt.group, got, tt.want)
		}
	}
}
