package accessibility

import (
	"sort"
	"strings"

	"github.com/JakeFAU/prospect-auditor/internal/prospect"
)

// Penalties subtracted from 100 for each violated rule, by impact.
const (
	PenaltyCritical = 10
	PenaltySerious  = 5
	PenaltyModerate = 2
	PenaltyMinor    = 1
)

// axeResults is the trimmed payload returned by the injected axe.run script.
type axeResults struct {
	Violations []axeViolation `json:"violations"`
	Passes     []axePass      `json:"passes"`
	Title      string         `json:"title"`
	Lang       string         `json:"lang"`
}

type axeViolation struct {
	ID          string   `json:"id"`
	Impact      string   `json:"impact"`
	Description string   `json:"description"`
	Help        string   `json:"help"`
	HelpURL     string   `json:"helpUrl"`
	Tags        []string `json:"tags"`
	Nodes       int      `json:"nodes"`
}

type axePass struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// summarize converts raw axe output into the scanner result. Violations are
// ordered most severe first, then by affected node count.
func summarize(raw axeResults) prospect.AccessibilityResult {
	result := prospect.AccessibilityResult{
		TotalViolations: len(raw.Violations),
		TotalPasses:     len(raw.Passes),
		PageTitle:       strings.TrimSpace(raw.Title),
		PageLanguage:    strings.TrimSpace(raw.Lang),
		Violations:      make([]prospect.Violation, 0, len(raw.Violations)),
		Passes:          make([]prospect.RulePass, 0, len(raw.Passes)),
	}
	for _, v := range raw.Violations {
		switch v.Impact {
		case prospect.ImpactCritical:
			result.CriticalCount++
		case prospect.ImpactSerious:
			result.SeriousCount++
		case prospect.ImpactModerate:
			result.ModerateCount++
		case prospect.ImpactMinor:
			result.MinorCount++
		}
		addPrinciples(&result.WCAG, v.Tags)
		result.Violations = append(result.Violations, prospect.Violation{
			ID:          v.ID,
			Impact:      v.Impact,
			Description: v.Description,
			Help:        v.Help,
			HelpURL:     v.HelpURL,
			Nodes:       v.Nodes,
			Tags:        append([]string(nil), v.Tags...),
		})
	}
	for _, p := range raw.Passes {
		result.Passes = append(result.Passes, prospect.RulePass{ID: p.ID, Description: p.Description})
	}
	sort.SliceStable(result.Violations, func(i, j int) bool {
		ri, rj := prospect.ImpactRank(result.Violations[i].Impact), prospect.ImpactRank(result.Violations[j].Impact)
		if ri != rj {
			return ri < rj
		}
		return result.Violations[i].Nodes > result.Violations[j].Nodes
	})
	result.Score = Score(result.CriticalCount, result.SeriousCount, result.ModerateCount, result.MinorCount)
	return result
}

// Score is 100 minus the weighted violation penalties, floored at 0.
func Score(critical, serious, moderate, minor int) int {
	score := 100 - (PenaltyCritical*critical + PenaltySerious*serious + PenaltyModerate*moderate + PenaltyMinor*minor)
	if score < 0 {
		return 0
	}
	return score
}

// addPrinciples counts a violation once under each POUR principle named by its
// success-criterion tags ("wcag111" is 1.1.1, Perceivable). Conformance level
// tags such as "wcag2aa" are ignored.
func addPrinciples(breakdown *prospect.WCAGBreakdown, tags []string) {
	seen := map[byte]bool{}
	for _, tag := range tags {
		principle, ok := principleOf(tag)
		if !ok || seen[principle] {
			continue
		}
		seen[principle] = true
		switch principle {
		case '1':
			breakdown.Perceivable++
		case '2':
			breakdown.Operable++
		case '3':
			breakdown.Understandable++
		case '4':
			breakdown.Robust++
		}
	}
}

func principleOf(tag string) (byte, bool) {
	digits, ok := strings.CutPrefix(strings.ToLower(tag), "wcag")
	if !ok || len(digits) < 3 {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	if digits[0] < '1' || digits[0] > '4' {
		return 0, false
	}
	return digits[0], true
}
