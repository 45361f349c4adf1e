package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/prospect-auditor/internal/clock/system"
	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

func TestBandFor(t *testing.T) {
	t.Parallel()

	tests := map[int]Band{
		100: BandStrong, 85: BandStrong,
		84: BandGood, 70: BandGood,
		69: BandWeak, 50: BandWeak,
		49: BandPoor, 0: BandPoor,
	}
	for score, want := range tests {
		require.Equal(t, want, BandFor(score), "score %d", score)
	}
}

func sampleRecord() prospect.AuditRecord {
	return prospect.AuditRecord{
		ID:                 "audit-1",
		UserID:             "user-1",
		URL:                "https://www.brightsmiledentistry.com",
		Domain:             "brightsmiledentistry.com",
		CreatedAt:          time.Date(2025, 5, 1, 14, 0, 0, 0, time.UTC),
		AccessibilityScore: 72,
		CriticalCount:      1,
		SeriousCount:       2,
		ModerateCount:      3,
		MinorCount:         1,
		Violations: []prospect.Violation{
			{ID: "region", Impact: prospect.ImpactModerate, Description: "All page content should be contained by landmarks"},
			{ID: "meta-viewport", Impact: prospect.ImpactMinor, Description: "Zooming should not be disabled"},
			{ID: "color-contrast", Impact: prospect.ImpactSerious, Description: strings.Repeat("contrast ", 30), Nodes: 14},
			{ID: "image-alt", Impact: prospect.ImpactCritical, Description: "Images must have alternate text", Nodes: 3},
			{ID: "link-name", Impact: prospect.ImpactSerious, Help: "Links must have discernible text"},
			{ID: "heading-order", Impact: prospect.ImpactModerate, Description: "Heading levels should only increase by one"},
			{ID: "list", Impact: prospect.ImpactModerate, Description: "Lists must only contain li elements"},
		},
		Scores: prospect.NewScoreBreakdown(27, 18, 5, 7),
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	generated := time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)
	doc := Build(record, Branding{AgencyName: "Acme Digital"}, generated)

	// content quality falls back to content marketing 5/20 = 25%; SEO overall is 57.
	require.Equal(t, []ScoreCard{
		{Label: CardOverall, Score: 51, Band: BandWeak},
		{Label: CardAccessibility, Score: 72, Band: BandGood},
		{Label: CardContentQuality, Score: 25, Band: BandPoor},
		{Label: CardSEO, Score: record.Scores.Overall, Band: BandFor(record.Scores.Overall)},
	}, doc.Cards)
	require.Equal(t, ViolationCounts{Critical: 1, Serious: 2, Moderate: 3, Minor: 1}, doc.Counts)
	require.Equal(t, generated, doc.GeneratedAt)
	require.Equal(t, "Acme Digital", doc.Branding.AgencyName)

	require.Len(t, doc.TopViolations, MaxTopViolations)
	ids := []string{}
	for _, v := range doc.TopViolations {
		ids = append(ids, v.ID)
		require.LessOrEqual(t, len([]rune(v.Description)), MaxDescriptionChars)
	}
	require.Equal(t, []string{"image-alt", "color-contrast", "link-name", "region", "heading-order"}, ids)
	require.True(t, strings.HasSuffix(doc.TopViolations[1].Description, "..."))
	require.Equal(t, "Links must have discernible text", doc.TopViolations[2].Description)
}

func TestContentQualityPrefersFactCheck(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	record.FactChecked = true
	record.FactCheckScore = 91
	require.Equal(t, 91, ContentQuality(record))

	record.FactCheckScore = 0
	require.Equal(t, 0, ContentQuality(record))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short text", Truncate("  short \n text ", 120))
	require.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	require.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestGenerateRendersPDF(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(Branding{AgencyName: "Acme Digital", Website: "acme.example"},
		system.Fixed{At: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC)})
	doc, pdf, err := gen.Generate(sampleRecord())
	require.NoError(t, err)
	require.Equal(t, "brightsmiledentistry.com", doc.Domain)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
	require.Greater(t, len(pdf), 1000)
}

func TestRenderWithoutViolations(t *testing.T) {
	t.Parallel()

	record := sampleRecord()
	record.Violations = nil
	pdf, err := Render(Build(record, Branding{}, time.Now()))
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
}

func TestObjectPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "reports/user-1/audit-1.pdf", ObjectPath(sampleRecord()))
}
