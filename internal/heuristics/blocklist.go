package heuristics

import "strings"

// defaultBlocklist names directories, social networks, review aggregators and
// map, job and real-estate listings. Entries match at a label boundary of the
// host, so "porch." blocks porch.com and www.porch.com but not frontporchrealty.com.
var defaultBlocklist = []string{
	"yelp.", "facebook.", "instagram.", "twitter.", "linkedin.", "youtube.",
	"tiktok.", "pinterest.", "reddit.", "wikipedia.", "nextdoor.",
	"yellowpages.", "superpages.", "bbb.org", "manta.", "citysearch.",
	"chamberofcommerce.", "foursquare.", "angi.", "angieslist.", "homeadvisor.",
	"thumbtack.", "houzz.", "porch.", "tripadvisor.", "groupon.",
	"healthgrades.", "zocdoc.", "vitals.", "webmd.", "opencare.",
	"google.", "maps.", "mapquest.", "bing.", "apple.", "yahoo.",
	"indeed.", "glassdoor.", "ziprecruiter.", "monster.", "simplyhired.",
	"zillow.", "realtor.", "trulia.", "redfin.", "apartments.", "loopnet.",
	"amazon.", "ebay.", "craigslist.", "expertise.", "birdeye.", "trustpilot.",
}

// substringBlocklist rejects hosts containing any configured fragment at the
// start of a label.
type substringBlocklist struct {
	fragments []string
}

func newSubstringBlocklist(entries []string) *substringBlocklist {
	list := &substringBlocklist{}
	seen := make(map[string]struct{}, len(entries))
	for _, raw := range entries {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		list.fragments = append(list.fragments, value)
	}
	return list
}

func (b *substringBlocklist) IsBlocked(host string) bool {
	if b == nil {
		return false
	}
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return false
	}
	for _, fragment := range b.fragments {
		if atLabelStart(host, fragment) {
			return true
		}
	}
	return false
}

// atLabelStart reports whether fragment occurs in host at index 0 or right
// after a dot. Fragments that begin with a dot are already anchored.
func atLabelStart(host, fragment string) bool {
	if strings.HasPrefix(fragment, ".") {
		return strings.Contains(host, fragment)
	}
	for from := 0; from < len(host); {
		i := strings.Index(host[from:], fragment)
		if i < 0 {
			return false
		}
		at := from + i
		if at == 0 || host[at-1] == '.' {
			return true
		}
		from = at + 1
	}
	return false
}
