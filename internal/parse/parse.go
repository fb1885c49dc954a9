// Package parse extracts parking-ad candidates from raw Leboncoin page markup.
package parse

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"parkwatch-engine/internal/domain"
	"parkwatch-engine/internal/geo"
)

// Ad-card selectors, newest marker first. The site has changed its markup
// several times; every historical variant stays in the list.
const adCardSelectors = `[data-qa-id="aditem_container"], .styles_adCard__ILIC2, .aditem`

var (
	titleSelectors    = []string{`[data-qa-id="aditem_title"]`, ".aditem-title", "h3", ".title"}
	locationSelectors = []string{`[data-qa-id="aditem_location"]`, ".aditem-location", ".location"}
	priceSelectors    = []string{`[data-qa-id="aditem_price"]`, ".aditem-price", ".price"}
)

// Loose containers scanned by the fallback tier when no ad card matches.
const fallbackSelectors = `div[class*="ad"], div[class*="item"], article, .listing-item`

// Fallback containment gate. Narrower than the title filter on purpose: it
// decides whether a blob of text is worth mining at all.
var fallbackKeywords = []string{"parking", "garage", "place"}

const maxFallbackTitleLen = 200

// Skip records one element that was examined but rejected, with the reason.
type Skip struct {
	Tier   string `json:"tier"` // "primary" or "fallback"
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// Report is the outcome of one extraction pass. Extraction is total: bad
// elements become Skips, never errors.
type Report struct {
	Ads          []domain.ParsedAd
	Skips        []Skip
	UsedFallback bool
}

// Extract parses a markup snapshot into deduplicated parking-ad candidates.
// The primary tier scans known ad-card structures; only when it yields
// nothing does the lossy fallback tier run.
func Extract(markup string) Report {
	var rep Report

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		rep.Skips = append(rep.Skips, Skip{Tier: "primary", Reason: "unparseable_document", Detail: err.Error()})
		return rep
	}

	rep.Ads = extractPrimary(doc, &rep.Skips)

	if len(rep.Ads) == 0 {
		rep.UsedFallback = true
		rep.Ads = extractFallback(doc, &rep.Skips)
	}

	rep.Ads = dedupe(rep.Ads)
	return rep
}

func extractPrimary(doc *goquery.Document, skips *[]Skip) []domain.ParsedAd {
	var ads []domain.ParsedAd

	doc.Find(adCardSelectors).Each(func(_ int, card *goquery.Selection) {
		title := firstText(card, titleSelectors)
		address := firstText(card, locationSelectors)
		price := ParsePrice(firstText(card, priceSelectors))

		if ad, skip := buildAd("primary", title, address, price); skip != nil {
			*skips = append(*skips, *skip)
		} else {
			ads = append(ads, ad)
		}
	})

	return ads
}

func extractFallback(doc *goquery.Document, skips *[]Skip) []domain.ParsedAd {
	var ads []domain.ParsedAd

	doc.Find(fallbackSelectors).Each(func(_ int, el *goquery.Selection) {
		blob := strings.ToLower(el.Text())
		if !containsAny(blob, fallbackKeywords) || !containsAny(blob, cityTokens) {
			return
		}

		title := longestLinkText(el)
		price := maxEuroAmount(CleanText(el.Text()))
		address := firstCityTextNode(el)

		if ad, skip := buildAd("fallback", title, address, price); skip != nil {
			*skips = append(*skips, *skip)
		} else {
			ads = append(ads, ad)
		}
	})

	return ads
}

// buildAd applies the shared post-filter and normalization to a recovered
// (title, address, price) triple.
func buildAd(tier, title, address string, price int) (domain.ParsedAd, *Skip) {
	title = CleanText(title)
	address = CleanText(address)

	switch {
	case title == "":
		return domain.ParsedAd{}, &Skip{Tier: tier, Reason: "empty_title"}
	case !isParkingTitle(title):
		return domain.ParsedAd{}, &Skip{Tier: tier, Reason: "not_parking", Detail: title}
	case address == "":
		return domain.ParsedAd{}, &Skip{Tier: tier, Reason: "empty_address", Detail: title}
	case !isAngersAddress(address):
		return domain.ParsedAd{}, &Skip{Tier: tier, Reason: "not_angers", Detail: address}
	case price <= 0:
		return domain.ParsedAd{}, &Skip{Tier: tier, Reason: "no_price", Detail: title}
	}

	return domain.ParsedAd{
		Title:        title,
		Address:      address,
		Neighborhood: geo.Classify(address),
		Price:        price,
	}, nil
}

// firstText tries each selector in order and returns the first non-empty
// cleaned text.
func firstText(s *goquery.Selection, candidates []string) string {
	for _, sel := range candidates {
		if t := CleanText(s.Find(sel).First().Text()); t != "" {
			return t
		}
	}
	return ""
}

// longestLinkText recovers a title heuristically: the longest anchor text
// under the element that stays below maxFallbackTitleLen runes.
func longestLinkText(el *goquery.Selection) string {
	var best string
	bestLen := 0
	el.Find("a").Each(func(_ int, a *goquery.Selection) {
		t := strings.TrimSpace(a.Text())
		n := utf8.RuneCountInString(t)
		if n > bestLen && n < maxFallbackTitleLen {
			best = t
			bestLen = n
		}
	})
	return best
}

// firstCityTextNode returns the first direct text-node child mentioning the
// city. Only direct children count; nested markup belongs to other fields.
func firstCityTextNode(el *goquery.Selection) string {
	var found string
	el.Contents().EachWithBreak(func(_ int, c *goquery.Selection) bool {
		n := c.Get(0)
		if n.Type != html.TextNode {
			return true
		}
		txt := strings.TrimSpace(n.Data)
		if utf8.RuneCountInString(txt) > 5 && strings.Contains(strings.ToLower(txt), cityName) {
			found = txt
			return false
		}
		return true
	})
	return found
}

// dedupe drops candidates equal to an earlier one under case-insensitive
// (title, address) and exact price. First occurrence keeps its position.
func dedupe(ads []domain.ParsedAd) []domain.ParsedAd {
	seen := make(map[string]struct{}, len(ads))
	out := ads[:0]
	for _, ad := range ads {
		key := strings.ToLower(ad.Title) + "\x1f" + strings.ToLower(ad.Address) + "\x1f" + strconv.Itoa(ad.Price)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, ad)
	}
	return out
}
