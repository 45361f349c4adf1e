package heuristics

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Institutional TLDs are never local-business prospects.
var institutionalTLDs = map[string]struct{}{
	"gov": {}, "edu": {}, "org": {}, "mil": {},
}

// defaultBrands are national chains and franchisors.
var defaultBrands = []string{
	"aspendental", "heartland", "smiledirect", "westerndental", "gentledental",
	"servpro", "rotorooter", "mrrooter", "mollymaid", "merrymaids", "stanleysteemer",
	"jiffylube", "midas", "meineke", "goodyear", "firestone", "statefarm",
	"allstate", "farmers", "remax", "kellerwilliams", "coldwellbanker", "century21",
	"orangetheory", "anytimefitness", "planetfitness", "greatclips", "supercuts",
	"sportclips", "hrblock", "jacksonhewitt", "terminix", "orkin", "truegreen",
	"aarons", "benjaminfranklin", "onehour", "mrelectric", "mistersparky",
}

// defaultCorporateTokens signal a corporate entity when two or more appear.
var defaultCorporateTokens = []string{
	"solutions", "premier", "partners", "group", "associates", "enterprises",
	"global", "international", "holdings", "systems", "national", "corporate",
	"industries", "worldwide", "consulting", "ventures", "network", "united",
}

type authority struct {
	brands []string
	tokens []string
}

func newAuthority(brands, tokens []string) *authority {
	return &authority{brands: brands, tokens: tokens}
}

func (a *authority) matches(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
	if host == "" {
		return false
	}
	if _, ok := institutionalTLDs[lastLabel(host)]; ok {
		return true
	}
	label := primaryLabel(host)
	if a.isFranchise(host, label) {
		return true
	}
	return a.corporateTokenCount(label) >= 2
}

func (a *authority) isFranchise(host, label string) bool {
	brand := false
	for _, b := range a.brands {
		if strings.Contains(label, b) {
			brand = true
			break
		}
	}
	if !brand {
		return false
	}
	return strings.ContainsAny(host, "0123456789") ||
		strings.Contains(host, "location") ||
		strings.Contains(host, "group")
}

func (a *authority) corporateTokenCount(label string) int {
	count := 0
	for _, token := range a.tokens {
		if strings.Contains(label, token) {
			count++
		}
	}
	return count
}

func lastLabel(host string) string {
	if idx := strings.LastIndex(host, "."); idx >= 0 {
		return host[idx+1:]
	}
	return host
}

// primaryLabel is the registrable name without its public suffix, e.g.
// "brightsmile" for "www.brightsmile.co.uk".
func primaryLabel(host string) string {
	registrable, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		registrable = host
	}
	suffix, _ := publicsuffix.PublicSuffix(registrable)
	label := strings.TrimSuffix(registrable, "."+suffix)
	if idx := strings.LastIndex(label, "."); idx >= 0 {
		label = label[idx+1:]
	}
	return label
}
