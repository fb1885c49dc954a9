package domain

// Neighborhood is one of the fixed Angers districts, or Autres when an
// address matches none of them.
type Neighborhood string

const (
	CentreVille    Neighborhood = "Centre-ville"
	LaFayette      Neighborhood = "La Fayette"
	LacDeMaine     Neighborhood = "Lac-de-Maine"
	BelleBeille    Neighborhood = "Belle-Beille"
	Monplaisir     Neighborhood = "Monplaisir"
	Justices       Neighborhood = "Justices"
	Doutre         Neighborhood = "Doutre"
	HautsDeChaises Neighborhood = "Hauts-de-Chaises"
	Roseraie       Neighborhood = "Roseraie"
	GrandPigeon    Neighborhood = "Grand-Pigeon"
	Autres         Neighborhood = "Autres"
)

// Neighborhoods lists every district in display order, Autres last.
var Neighborhoods = []Neighborhood{
	CentreVille, LaFayette, LacDeMaine, BelleBeille, Monplaisir,
	Justices, Doutre, HautsDeChaises, Roseraie, GrandPigeon, Autres,
}

// ParsedAd is one candidate extracted from a snapshot. It lives only within
// a single ingestion cycle and is never persisted.
type ParsedAd struct {
	Title        string       `json:"title"`
	Address      string       `json:"address"`
	Neighborhood Neighborhood `json:"neighborhood"`
	Price        int          `json:"price"`
}
