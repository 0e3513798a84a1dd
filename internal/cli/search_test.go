package cli

import "testing"

func TestFoldForSearch(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"weather", "weather"},
		{"WEATHER", "weather"},
		{"Café", "cafe"},
		{"naïve-fetcher", "naive-fetcher"},
		{"@Acme/Tool", "@acme/tool"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := foldForSearch(tt.in); got != tt.want {
				t.Errorf("foldForSearch(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchesQuery(t *testing.T) {
	entry := searchEntry{
		Name:        "@acme/café-feed",
		Version:     "1.0.0",
		Kind:        "installed",
		Description: "Real-time menu updates",
	}

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"name substring", "cafe", true},
		{"name exact accent", "café-feed", true},
		{"scope", "@acme", true},
		{"description substring", "menu", true},
		{"description case folded", "real-time", true},
		{"miss", "loggers", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesQuery(entry, foldForSearch(tt.query)); got != tt.want {
				t.Errorf("matchesQuery(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestMatchesQueryEmptyDescription(t *testing.T) {
	entry := searchEntry{Name: "plain-tool", Version: "0.1.0", Kind: "local"}
	if !matchesQuery(entry, foldForSearch("plain")) {
		t.Error("name match failed without a description")
	}
	if matchesQuery(entry, foldForSearch("menu")) {
		t.Error("matched against an empty description")
	}
}
