package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// priceRe captures the leading digit run once whitespace is stripped,
	// with an optional trailing euro sign ("500 €", "500€", "500").
	priceRe = regexp.MustCompile(`(\d+)€?`)
	// euroRe captures "<digits> €" shaped amounts anywhere in loose text.
	euroRe = regexp.MustCompile(`(\d+)\s*€`)
)

var parkingKeywords = []string{"parking", "garage", "place", "box", "stationnement"}

const cityName = "angers"

var cityTokens = []string{cityName, "49000", "49100"}

// CleanText trims, turns NBSP into plain spaces and collapses internal
// whitespace runs to single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// ParsePrice extracts an integer price from raw ad text. Unparseable text
// yields 0, never an error.
func ParsePrice(raw string) int {
	stripped := strings.Join(strings.Fields(strings.ReplaceAll(raw, " ", " ")), "")
	m := priceRe.FindStringSubmatch(stripped)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// maxEuroAmount returns the largest "<digits> €" amount found in text, 0 if none.
func maxEuroAmount(text string) int {
	best := 0
	for _, m := range euroRe.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > best {
			best = n
		}
	}
	return best
}

func isParkingTitle(title string) bool {
	return containsAny(strings.ToLower(title), parkingKeywords)
}

func isAngersAddress(address string) bool {
	return containsAny(strings.ToLower(address), cityTokens)
}

func containsAny(lower string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}
