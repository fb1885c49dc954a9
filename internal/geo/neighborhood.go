// Package geo maps free-text addresses to Angers neighborhoods.
package geo

import (
	"strings"

	"parkwatch-engine/internal/domain"
)

// Ordered on purpose: first match wins, so specific spellings come before
// looser ones ("centre-ville" before "centre").
var keywords = []struct {
	term string
	hood domain.Neighborhood
}{
	{"centre-ville", domain.CentreVille},
	{"centre ville", domain.CentreVille},
	{"centre", domain.CentreVille},
	{"lafayette", domain.LaFayette},
	{"la fayette", domain.LaFayette},
	{"lac de maine", domain.LacDeMaine},
	{"lac-de-maine", domain.LacDeMaine},
	{"belle-beille", domain.BelleBeille},
	{"belle beille", domain.BelleBeille},
	{"bellebeille", domain.BelleBeille},
	{"monplaisir", domain.Monplaisir},
	{"justices", domain.Justices},
	{"doutre", domain.Doutre},
	{"hauts-de-chaises", domain.HautsDeChaises},
	{"hauts de chaises", domain.HautsDeChaises},
	{"roseraie", domain.Roseraie},
	{"grand-pigeon", domain.GrandPigeon},
	{"grand pigeon", domain.GrandPigeon},
}

// Classify returns the neighborhood whose keyword appears first in the
// ordered list, or Autres when none matches. Total over any input.
func Classify(address string) domain.Neighborhood {
	a := strings.ToLower(address)
	for _, kw := range keywords {
		if strings.Contains(a, kw.term) {
			return kw.hood
		}
	}
	return domain.Autres
}
