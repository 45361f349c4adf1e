package prospect

import (
	"math"
	"net/http"
	"time"
)

// Candidate is a business website produced by a search provider.
type Candidate struct {
	Domain      string `json:"domain"`
	DisplayName string `json:"display_name"`
	City        string `json:"city,omitempty"`
	State       string `json:"state,omitempty"`
}

// Query describes one page of a business search.
type Query struct {
	Industry string
	City     string
	State    string
	Count    int
	Offset   int
}

// Text renders the free-text query sent to search providers.
func (q Query) Text() string {
	text := q.Industry
	if q.City != "" {
		text += " " + q.City
	}
	if q.State != "" {
		text += " " + q.State
	}
	return text
}

// ImageStats counts images and how many carry alt text.
type ImageStats struct {
	Total   int `json:"total"`
	WithAlt int `json:"with_alt"`
}

// HeadingStats summarizes the heading outline of a page.
type HeadingStats struct {
	H1Count int    `json:"h1_count"`
	H1Text  string `json:"h1_text"`
	H2Count int    `json:"h2_count"`
}

// ScrapedPage is the parsed structure of one fetched page. It is request scoped.
// BodyText holds the extracted main content; PageText holds all visible text
// and is used for contact and location signals that live outside the main region.
type ScrapedPage struct {
	URL               string       `json:"url"`
	UsedHeadless      bool         `json:"used_headless"`
	Title             string       `json:"title"`
	MetaDescription   string       `json:"meta_description"`
	HasStructuredData bool         `json:"has_structured_data"`
	HasViewportTag    bool         `json:"has_viewport_tag"`
	Images            ImageStats   `json:"images"`
	Headings          HeadingStats `json:"headings"`
	InternalLinkCount int          `json:"internal_link_count"`
	BodyText          string       `json:"body_text"`
	PageText          string       `json:"-"`
	BodyWordCount     int          `json:"body_word_count"`
	OutboundLinkHrefs []string     `json:"outbound_link_hrefs"`
}

// Severity ranks an SEO issue.
type Severity string

// Severity values, most severe first.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities; lower is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// Issue categories.
const (
	CategoryTechnical = "Technical SEO"
	CategoryOnPage    = "On-Page SEO"
	CategoryContent   = "Content Marketing"
	CategoryLocal     = "Local SEO"
	CategoryAccess    = "Website Access"
)

// SeoIssue is one finding produced by the scorer.
type SeoIssue struct {
	Category string   `json:"category"`
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity"`
	Fix      string   `json:"fix"`
}

// Sub-score ceilings.
const (
	MaxTechnicalSEO     = 40
	MaxOnPageSEO        = 30
	MaxContentMarketing = 20
	MaxLocalSEO         = 10
	MaxOverall          = 100
)

// ScoreBreakdown holds the four raw sub-scores and the weighted overall score.
type ScoreBreakdown struct {
	TechnicalSEO     int `json:"technical_seo"`
	OnPageSEO        int `json:"on_page_seo"`
	ContentMarketing int `json:"content_marketing"`
	LocalSEO         int `json:"local_seo"`
	Overall          int `json:"overall"`
}

// NewScoreBreakdown clamps the raw sub-scores to their ceilings and derives Overall.
func NewScoreBreakdown(technical, onPage, content, local int) ScoreBreakdown {
	s := ScoreBreakdown{
		TechnicalSEO:     clamp(technical, MaxTechnicalSEO),
		OnPageSEO:        clamp(onPage, MaxOnPageSEO),
		ContentMarketing: clamp(content, MaxContentMarketing),
		LocalSEO:         clamp(local, MaxLocalSEO),
	}
	overall := 0.40*s.TechnicalPct() + 0.30*s.OnPagePct() + 0.20*s.ContentPct() + 0.10*s.LocalPct()
	s.Overall = clamp(int(math.Round(overall)), MaxOverall)
	return s
}

// TechnicalPct is TechnicalSEO normalized to 0-100.
func (s ScoreBreakdown) TechnicalPct() float64 { return pct(s.TechnicalSEO, MaxTechnicalSEO) }

// OnPagePct is OnPageSEO normalized to 0-100.
func (s ScoreBreakdown) OnPagePct() float64 { return pct(s.OnPageSEO, MaxOnPageSEO) }

// ContentPct is ContentMarketing normalized to 0-100.
func (s ScoreBreakdown) ContentPct() float64 { return pct(s.ContentMarketing, MaxContentMarketing) }

// LocalPct is LocalSEO normalized to 0-100.
func (s ScoreBreakdown) LocalPct() float64 { return pct(s.LocalSEO, MaxLocalSEO) }

func pct(value, ceiling int) float64 {
	return float64(clamp(value, ceiling)) * 100 / float64(ceiling)
}

func clamp(value, ceiling int) int {
	if value < 0 {
		return 0
	}
	if value > ceiling {
		return ceiling
	}
	return value
}

// Rating is the business value of a lead.
type Rating string

// Rating values.
const (
	RatingHigh   Rating = "high"
	RatingMedium Rating = "medium"
	RatingLow    Rating = "low"
)

// Rank orders ratings high -> medium -> low.
func (r Rating) Rank() int {
	switch r {
	case RatingHigh:
		return 0
	case RatingMedium:
		return 1
	default:
		return 2
	}
}

// OpportunityType names the dominant deficiency behind a rating.
type OpportunityType string

// Opportunity types. OpportunityNone means no dominant gap.
const (
	OpportunityNone              OpportunityType = ""
	OpportunityMissingTechnical  OpportunityType = "missing-technical-seo"
	OpportunityNoContentStrategy OpportunityType = "no-content-strategy"
	OpportunityWeakLocal         OpportunityType = "weak-local-seo"
	OpportunityNeedsOptimization OpportunityType = "needs-optimization"
)

// NAPDetails carries the contact signals extracted from a page.
type NAPDetails struct {
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Lead is a scored and classified candidate.
type Lead struct {
	Candidate       Candidate       `json:"candidate"`
	Scores          ScoreBreakdown  `json:"scores"`
	Issues          []SeoIssue      `json:"issues"`
	Rating          Rating          `json:"rating"`
	OpportunityType OpportunityType `json:"opportunity_type,omitempty"`
	NAP             NAPDetails      `json:"nap"`
	HasBlog         bool            `json:"has_blog"`
	BlogPostCount   int             `json:"blog_post_count"`
}

// FetchRequest captures everything needed to fetch a URL.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}

// Violation is one accessibility rule failure reported by the scanner.
type Violation struct {
	ID          string   `json:"id"`
	Impact      string   `json:"impact"`
	Description string   `json:"description"`
	Help        string   `json:"help"`
	HelpURL     string   `json:"help_url"`
	Nodes       int      `json:"nodes"`
	Tags        []string `json:"tags,omitempty"`
}

// Impact values reported by the accessibility scanner.
const (
	ImpactCritical = "critical"
	ImpactSerious  = "serious"
	ImpactModerate = "moderate"
	ImpactMinor    = "minor"
)

// ImpactRank orders violation impacts; lower is more severe.
func ImpactRank(impact string) int {
	switch impact {
	case ImpactCritical:
		return 0
	case ImpactSerious:
		return 1
	case ImpactModerate:
		return 2
	case ImpactMinor:
		return 3
	default:
		return 4
	}
}

// RulePass is an accessibility rule the page satisfied.
type RulePass struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// WCAGBreakdown groups violations by POUR principle.
type WCAGBreakdown struct {
	Perceivable    int `json:"perceivable"`
	Operable       int `json:"operable"`
	Understandable int `json:"understandable"`
	Robust         int `json:"robust"`
}

// AccessibilityResult is the output of an accessibility scan.
type AccessibilityResult struct {
	Score           int           `json:"score"`
	CriticalCount   int           `json:"critical_count"`
	SeriousCount    int           `json:"serious_count"`
	ModerateCount   int           `json:"moderate_count"`
	MinorCount      int           `json:"minor_count"`
	TotalViolations int           `json:"total_violations"`
	TotalPasses     int           `json:"total_passes"`
	Violations      []Violation   `json:"violations"`
	Passes          []RulePass    `json:"passes"`
	WCAG            WCAGBreakdown `json:"wcag_breakdown"`
	PageTitle       string        `json:"page_title"`
	PageLanguage    string        `json:"page_language"`
}

// ClaimResult is the verdict for one checked claim.
type ClaimResult struct {
	Claim       string  `json:"claim"`
	Verdict     string  `json:"verdict"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation,omitempty"`
}

// FactCheckResult is the output of the fact-check adapter.
type FactCheckResult struct {
	OverallScore int           `json:"overall_score"`
	Claims       []ClaimResult `json:"claims"`
}

// AuditRecord is the immutable, persisted outcome of one audit.
type AuditRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	CreatedAt time.Time `json:"created_at"`

	AccessibilityScore int           `json:"accessibility_score"`
	CriticalCount      int           `json:"critical_count"`
	SeriousCount       int           `json:"serious_count"`
	ModerateCount      int           `json:"moderate_count"`
	MinorCount         int           `json:"minor_count"`
	TotalViolations    int           `json:"total_violations"`
	TotalPasses        int           `json:"total_passes"`
	WCAG               WCAGBreakdown `json:"wcag_breakdown"`
	Violations         []Violation   `json:"violations"`
	PageTitle          string        `json:"page_title,omitempty"`
	PageLanguage       string        `json:"page_language,omitempty"`

	Scores         ScoreBreakdown `json:"scores"`
	FactCheckScore int            `json:"fact_check_score"`
	FactChecked    bool           `json:"fact_checked"`
	Issues         []SeoIssue     `json:"issues"`
	NAP            NAPDetails     `json:"nap"`
}

// Asset references a stored artifact such as a rendered report.
type Asset struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	AuditID     string    `json:"audit_id"`
	Kind        string    `json:"kind"`
	URI         string    `json:"uri"`
	ContentHash string    `json:"content_hash"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

// AssetKindReport marks a rendered audit report.
const AssetKindReport = "audit_report"

// UsageEvent is reported to the billing collaborator once per batch or audit.
type UsageEvent struct {
	UserID        string         `json:"user_id"`
	OperationType string         `json:"operation_type"`
	CostUSD       float64        `json:"cost_usd"`
	TokensUsed    int            `json:"tokens_used"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Usage operation types.
const (
	OperationDiscovery = "lead_discovery"
	OperationAudit     = "site_audit"
)
