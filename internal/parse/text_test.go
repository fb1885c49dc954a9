package parse

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"500 €", 500},
		{"500€", 500},
		{"500", 500},
		{"1 200 €", 1200},
		{"120 €", 120},
		{"80 € / mois", 80},
		{"", 0},
		{"prix sur demande", 0},
		{"gratuit", 0},
	}

	for _, tt := range tests {
		if got := ParsePrice(tt.raw); got != tt.want {
			t.Errorf("ParsePrice(%q) = %d; want %d", tt.raw, got, tt.want)
		}
	}
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Place   de\n parking ", "Place de parking"},
		{"Belle Beille", "Belle Beille"},
		{"", ""},
		{"   \t\n  ", ""},
	}

	for _, tt := range tests {
		if got := CleanText(tt.in); got != tt.want {
			t.Errorf("CleanText(%q) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestMaxEuroAmount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"caution 300 €, loyer 85 €", 300},
		{"85 €", 85},
		{"pas de prix", 0},
		{"100 euros", 0},
	}

	for _, tt := range tests {
		if got := maxEuroAmount(tt.in); got != tt.want {
			t.Errorf("maxEuroAmount(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}
