// Package opportunity maps SEO scores to a sales-opportunity rating.
package opportunity

import "github.com/JakeFAU/prospect-auditor/internal/prospect"

// Sweet-spot bounds for a high rating.
const (
	HighMin   = 45
	HighMax   = 70
	MediumMax = 85
)

// Rate returns the rating for an overall score: [45,70] high, (70,85) medium,
// everything else low.
func Rate(overall int) prospect.Rating {
	switch {
	case overall >= HighMin && overall <= HighMax:
		return prospect.RatingHigh
	case overall > HighMax && overall < MediumMax:
		return prospect.RatingMedium
	default:
		return prospect.RatingLow
	}
}

// Type names the dominant deficiency. The first matching rule wins.
func Type(scores prospect.ScoreBreakdown, issues []prospect.SeoIssue, hasBlog bool) prospect.OpportunityType {
	switch {
	case scores.TechnicalPct() < 60 || hasCriticalTechnical(issues):
		return prospect.OpportunityMissingTechnical
	case !hasBlog || scores.ContentPct() < 50:
		return prospect.OpportunityNoContentStrategy
	case scores.LocalPct() < 50:
		return prospect.OpportunityWeakLocal
	case scores.Overall < 70:
		return prospect.OpportunityNeedsOptimization
	default:
		return prospect.OpportunityNone
	}
}

// Classify returns both the rating and the opportunity type.
func Classify(scores prospect.ScoreBreakdown, issues []prospect.SeoIssue, hasBlog bool) (prospect.Rating, prospect.OpportunityType) {
	return Rate(scores.Overall), Type(scores, issues, hasBlog)
}

func hasCriticalTechnical(issues []prospect.SeoIssue) bool {
	for _, issue := range issues {
		if issue.Category == prospect.CategoryTechnical && issue.Severity == prospect.SeverityCritical {
			return true
		}
	}
	return false
}
