// Package report turns an audit record into a shareable PDF.
package report

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

const (
	// MaxTopViolations is how many violations the report lists.
	MaxTopViolations = 5
	// MaxDescriptionChars bounds each listed violation description.
	MaxDescriptionChars = 120
)

// Band is the color-coded grade of a score.
type Band string

// Bands from best to worst.
const (
	BandStrong Band = "strong"
	BandGood   Band = "good"
	BandWeak   Band = "weak"
	BandPoor   Band = "poor"
)

// BandFor maps a 0-100 score to its band.
func BandFor(score int) Band {
	switch {
	case score >= 85:
		return BandStrong
	case score >= 70:
		return BandGood
	case score >= 50:
		return BandWeak
	default:
		return BandPoor
	}
}

// Score card labels in display order.
const (
	CardOverall        = "Overall"
	CardAccessibility  = "Accessibility"
	CardContentQuality = "Content Quality"
	CardSEO            = "SEO"
)

// ScoreCard is one tile in the score row.
type ScoreCard struct {
	Label string `json:"label"`
	Score int    `json:"score"`
	Band  Band   `json:"band"`
}

// ViolationCounts summarizes violations by impact.
type ViolationCounts struct {
	Critical int `json:"critical"`
	Serious  int `json:"serious"`
	Moderate int `json:"moderate"`
	Minor    int `json:"minor"`
}

// ViolationLine is one entry of the top violations list.
type ViolationLine struct {
	ID          string `json:"id"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
	Nodes       int    `json:"nodes"`
}

// Branding is optional agency information printed in the footer.
type Branding struct {
	AgencyName   string `json:"agency_name,omitempty"`
	Website      string `json:"website,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// Empty reports whether no branding is configured.
func (b Branding) Empty() bool {
	return b.AgencyName == "" && b.Website == "" && b.ContactEmail == ""
}

// Document is the layout-independent content of a report.
type Document struct {
	AuditID       string          `json:"audit_id"`
	Domain        string          `json:"domain"`
	URL           string          `json:"url"`
	PageTitle     string          `json:"page_title,omitempty"`
	AuditedAt     time.Time       `json:"audited_at"`
	Cards         []ScoreCard     `json:"cards"`
	Counts        ViolationCounts `json:"counts"`
	TopViolations []ViolationLine `json:"top_violations"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Branding      Branding        `json:"branding"`
}

// Build assembles a Document from record.
func Build(record prospect.AuditRecord, branding Branding, generatedAt time.Time) Document {
	accessibility := record.AccessibilityScore
	content := ContentQuality(record)
	seo := record.Scores.Overall
	overall := int(math.Round(float64(accessibility+content+seo) / 3))

	return Document{
		AuditID:   record.ID,
		Domain:    record.Domain,
		URL:       record.URL,
		PageTitle: record.PageTitle,
		AuditedAt: record.CreatedAt,
		Cards: []ScoreCard{
			card(CardOverall, overall),
			card(CardAccessibility, accessibility),
			card(CardContentQuality, content),
			card(CardSEO, seo),
		},
		Counts: ViolationCounts{
			Critical: record.CriticalCount,
			Serious:  record.SeriousCount,
			Moderate: record.ModerateCount,
			Minor:    record.MinorCount,
		},
		TopViolations: topViolations(record.Violations),
		GeneratedAt:   generatedAt,
		Branding:      branding,
	}
}

// ContentQuality is the fact-check score when one was produced, otherwise the
// content marketing sub-score as a percentage.
func ContentQuality(record prospect.AuditRecord) int {
	if record.FactChecked {
		return record.FactCheckScore
	}
	return int(math.Round(record.Scores.ContentPct()))
}

func card(label string, score int) ScoreCard {
	return ScoreCard{Label: label, Score: score, Band: BandFor(score)}
}

func topViolations(violations []prospect.Violation) []ViolationLine {
	sorted := append([]prospect.Violation(nil), violations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return prospect.ImpactRank(sorted[i].Impact) < prospect.ImpactRank(sorted[j].Impact)
	})
	if len(sorted) > MaxTopViolations {
		sorted = sorted[:MaxTopViolations]
	}
	lines := make([]ViolationLine, 0, len(sorted))
	for _, v := range sorted {
		desc := v.Description
		if desc == "" {
			desc = v.Help
		}
		lines = append(lines, ViolationLine{
			ID:          v.ID,
			Impact:      v.Impact,
			Description: Truncate(desc, MaxDescriptionChars),
			Nodes:       v.Nodes,
		})
	}
	return lines
}

// Truncate shortens text to at most limit runes, ending in "..." when cut.
func Truncate(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	if limit <= 3 {
		return string([]rune(text)[:limit])
	}
	return strings.TrimRight(string([]rune(text)[:limit-3]), " ") + "..."
}
