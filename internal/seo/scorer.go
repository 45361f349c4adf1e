// Package seo scores a scraped page against bracket-based SEO heuristics.
package seo

import (
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JakeFAU/prospect-auditor/internal/heuristics"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Result is the outcome of scoring one page.
type Result struct {
	Scores        prospect.ScoreBreakdown `json:"scores"`
	Issues        []prospect.SeoIssue     `json:"issues"`
	NAP           prospect.NAPDetails     `json:"nap"`
	HasBlog       bool                    `json:"has_blog"`
	BlogPostCount int                     `json:"blog_post_count"`
}

// Scorer is stateless apart from its rule set and safe for concurrent use.
type Scorer struct {
	rules heuristics.Rules
}

// New builds a Scorer. A nil rule set selects heuristics.NewDefault.
func New(rules heuristics.Rules) *Scorer {
	if rules == nil {
		rules = heuristics.NewDefault()
	}
	return &Scorer{rules: rules}
}

var (
	blogPathMarkers  = []string{"/blog", "/news", "/articles", "/insights"}
	blogHostPrefixes = []string{"blog.", "news."}
)

var hubSegments = map[string]struct{}{
	"blog": {}, "news": {}, "articles": {}, "insights": {},
}

var listingSegments = map[string]struct{}{
	"page": {}, "category": {}, "tag": {}, "author": {}, "feed": {},
}

type tally struct {
	points int
	issues []prospect.SeoIssue
}

func (t *tally) add(points int) { t.points += points }

func (t *tally) flag(points int, category, issue string, severity prospect.Severity, fix string) {
	t.points += points
	t.issues = append(t.issues, prospect.SeoIssue{
		Category: category,
		Issue:    issue,
		Severity: severity,
		Fix:      fix,
	})
}

// Score evaluates page. domain is the comparison key of the site and limits
// blog post counting to the site's own hub; now anchors the freshness check.
func (s *Scorer) Score(page prospect.ScrapedPage, domain string, now time.Time) Result {
	text := page.PageText
	if text == "" {
		text = page.BodyText
	}

	technical := scoreTechnical(page)
	onPage := scoreOnPage(page)
	hasBlog, posts := detectBlog(page.OutboundLinkHrefs, domain)
	content := scoreContent(page, text, hasBlog, now)
	nap := s.rules.ExtractNAP(text)
	local := scoreLocal(nap, s.rules.HasLocationKeyword(text))

	issues := make([]prospect.SeoIssue, 0, len(technical.issues)+len(onPage.issues)+len(content.issues)+len(local.issues))
	issues = append(issues, technical.issues...)
	issues = append(issues, onPage.issues...)
	issues = append(issues, content.issues...)
	issues = append(issues, local.issues...)

	return Result{
		Scores:        prospect.NewScoreBreakdown(technical.points, onPage.points, content.points, local.points),
		Issues:        issues,
		NAP:           nap,
		HasBlog:       hasBlog,
		BlogPostCount: posts,
	}
}

func scoreTechnical(page prospect.ScrapedPage) tally {
	var t tally
	const cat = prospect.CategoryTechnical

	switch n := utf8.RuneCountInString(page.Title); {
	case n == 0:
		t.flag(0, cat, "Missing page title", prospect.SeverityCritical,
			"Add a descriptive <title> of 30-70 characters naming the business and service.")
	case n < 30:
		t.flag(5, cat, "Page title is too short", prospect.SeverityHigh,
			"Expand the title to 30-70 characters including the primary service and city.")
	case n > 70:
		t.flag(7, cat, "Page title is too long", prospect.SeverityMedium,
			"Shorten the title to 70 characters or fewer so it is not truncated in results.")
	default:
		t.add(10)
	}

	switch n := utf8.RuneCountInString(page.MetaDescription); {
	case n == 0:
		t.flag(0, cat, "Missing meta description", prospect.SeverityCritical,
			"Write a 120-160 character meta description summarizing services and location.")
	case n < 120:
		t.flag(5, cat, "Meta description is too short", prospect.SeverityHigh,
			"Lengthen the meta description to 120-160 characters.")
	case n > 160:
		t.flag(8, cat, "Meta description is too long", prospect.SeverityLow,
			"Trim the meta description to 160 characters or fewer.")
	default:
		t.add(10)
	}

	if page.HasStructuredData {
		t.add(10)
	} else {
		t.flag(0, cat, "No structured data found", prospect.SeverityHigh,
			"Add LocalBusiness JSON-LD markup with name, address, phone and hours.")
	}

	if page.HasViewportTag {
		t.add(5)
	} else {
		t.flag(0, cat, "Missing viewport meta tag", prospect.SeverityCritical,
			`Add <meta name="viewport" content="width=device-width, initial-scale=1"> for mobile rendering.`)
	}

	if page.Images.Total > 0 {
		ratio := float64(page.Images.WithAlt) / float64(page.Images.Total)
		switch {
		case ratio < 0.5:
			t.flag(2, cat, "Most images are missing alt text", prospect.SeverityHigh,
				"Describe every meaningful image with an alt attribute.")
		case ratio < 0.9:
			t.flag(4, cat, "Some images are missing alt text", prospect.SeverityMedium,
				"Add alt attributes to the remaining images.")
		default:
			t.add(5)
		}
	} else {
		t.add(5)
	}
	return t
}

func scoreOnPage(page prospect.ScrapedPage) tally {
	var t tally
	const cat = prospect.CategoryOnPage

	switch {
	case page.Headings.H1Count == 0:
		t.flag(0, cat, "Missing H1 heading", prospect.SeverityCritical,
			"Add a single H1 stating the primary service and location.")
	case page.Headings.H1Count > 1:
		t.flag(7, cat, "Multiple H1 headings", prospect.SeverityMedium,
			"Keep one H1 per page and demote the others to H2.")
	case utf8.RuneCountInString(page.Headings.H1Text) < 20:
		t.flag(8, cat, "H1 heading is too short", prospect.SeverityMedium,
			"Make the H1 descriptive, at least 20 characters.")
	default:
		t.add(10)
	}

	switch {
	case page.Headings.H2Count == 0:
		t.flag(3, cat, "No H2 subheadings", prospect.SeverityHigh,
			"Structure content with H2 subheadings for each service.")
	case page.Headings.H2Count >= 2:
		t.add(10)
	default:
		t.flag(7, cat, "Only one H2 subheading", prospect.SeverityLow,
			"Break content into more sections with H2 subheadings.")
	}

	switch {
	case page.InternalLinkCount < 3:
		t.flag(4, cat, "Very few internal links", prospect.SeverityMedium,
			"Link to service, about and contact pages from the homepage.")
	case page.InternalLinkCount < 10:
		t.flag(7, cat, "Limited internal linking", prospect.SeverityLow,
			"Add links to individual service and location pages.")
	default:
		t.add(10)
	}
	return t
}

func scoreContent(page prospect.ScrapedPage, text string, hasBlog bool, now time.Time) tally {
	var t tally
	const cat = prospect.CategoryContent

	switch {
	case page.BodyWordCount < 300:
		t.flag(2, cat, "Thin page content", prospect.SeverityHigh,
			"Expand the homepage to at least 500 words describing services and expertise.")
	case page.BodyWordCount < 500:
		t.flag(4, cat, "Page content could be more substantial", prospect.SeverityLow,
			"Grow the main content past 500 words.")
	default:
		t.add(5)
	}

	if hasBlog {
		t.add(10)
	} else {
		t.flag(0, cat, "No blog or content hub", prospect.SeverityCritical,
			"Start a blog answering common customer questions and publish regularly.")
	}

	year := now.Year()
	switch {
	case strings.Contains(text, strconv.Itoa(year)):
		t.add(5)
	case strings.Contains(text, strconv.Itoa(year-1)):
		t.flag(3, cat, "Content appears to be from last year", prospect.SeverityLow,
			"Refresh page content and copyright dates for the current year.")
	default:
		t.flag(1, cat, "Content appears outdated", prospect.SeverityMedium,
			"Publish fresh content and update dates on the site.")
	}
	return t
}

func scoreLocal(nap prospect.NAPDetails, hasLocation bool) tally {
	var t tally
	const cat = prospect.CategoryLocal

	hasPhone, hasAddress := nap.Phone != "", nap.Address != ""
	switch {
	case hasPhone && hasAddress:
		t.add(5)
	case hasPhone || hasAddress:
		t.flag(3, cat, "Incomplete business contact details", prospect.SeverityMedium,
			"Show the full business name, street address and phone number on every page.")
	default:
		t.flag(0, cat, "No business address or phone number found", prospect.SeverityHigh,
			"Add consistent name, address and phone (NAP) details to the site footer.")
	}

	if hasLocation {
		t.add(5)
	} else {
		t.flag(2, cat, "No city and state mentioned", prospect.SeverityMedium,
			`Mention the service area as "City, ST" in headings and body copy.`)
	}
	return t
}

// detectBlog reports whether any link points at a content hub and counts the
// distinct post links beneath the site's own hub.
func detectBlog(hrefs []string, domain string) (bool, int) {
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	found := false
	posts := make(map[string]struct{})
	for _, href := range hrefs {
		lower := strings.ToLower(href)
		if !isBlogLink(lower) {
			continue
		}
		found = true
		if key, ok := postKey(lower, domain); ok {
			posts[key] = struct{}{}
		}
	}
	return found, len(posts)
}

// isBlogLink matches path markers against the path only and host markers
// against the start of the host, so a site like dailynews.com does not turn
// every internal link into a blog link.
func isBlogLink(href string) bool {
	path, host := href, ""
	if u, err := url.Parse(href); err == nil {
		path, host = u.EscapedPath(), strings.TrimPrefix(u.Hostname(), "www.")
	}
	for _, prefix := range blogHostPrefixes {
		if strings.HasPrefix(host, prefix) {
			return true
		}
	}
	for _, marker := range blogPathMarkers {
		if strings.Contains(path, marker) {
			return true
		}
	}
	return false
}

func postKey(href, domain string) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if domain != "" && host != "" && host != domain && !strings.HasSuffix(host, "."+domain) {
		return "", false
	}
	var segments []string
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	key := host + "/" + strings.Join(segments, "/")

	if strings.HasPrefix(host, "blog.") || strings.HasPrefix(host, "news.") {
		if len(segments) > 0 {
			if _, listing := listingSegments[segments[0]]; !listing {
				return key, true
			}
		}
		return "", false
	}
	for i, seg := range segments {
		if _, hub := hubSegments[seg]; !hub || i == len(segments)-1 {
			continue
		}
		if _, listing := listingSegments[segments[i+1]]; listing {
			return "", false
		}
		return key, true
	}
	return "", false
}
