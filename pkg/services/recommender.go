package services

import (
	"strings"

	"github.com/milkyway-analytics/milkyway/pkg/models"
)

// Recommendation is the recommender's verdict with a human-readable reason.
type Recommendation struct {
	Pattern models.Pattern `json:"pattern"`
	Reason  string         `json:"reason"`
}

type recommendationRule struct {
	tokens  []string
	pattern models.Pattern
	reason  string
}

// recommendationRules are evaluated top to bottom; the first rule with any
// token present in the text wins.
var recommendationRules = []recommendationRule{
	{
		tokens:  []string{"churn", "retention", "growth", "retained", "resurrected", "new users", "lost users", "active users"},
		pattern: models.PatternGrowthAccounting,
		reason:  "Growth accounting splits active customers into new, retained, resurrected and churned each period.",
	},
	{
		tokens:  []string{"cohort", "return", "come back", "repeat"},
		pattern: models.PatternRetention,
		reason:  "Retention follows each signup cohort and measures how many return in later periods.",
	},
	{
		tokens:  []string{"running total", "cumulative", "snapshot", "to date", "lifetime"},
		pattern: models.PatternCumulativeSnapshot,
		reason:  "Cumulative snapshot carries yesterday's totals forward and adds today's activity.",
	},
}

const defaultRecommendationReason = "No specific signal in the request; growth accounting is the most general starting point."

// RecommendPattern classifies free text into one of the analytics patterns.
// It always returns a recommendation.
func RecommendPattern(text string) Recommendation {
	lower := strings.ToLower(text)
	for _, rule := range recommendationRules {
		for _, token := range rule.tokens {
			if strings.Contains(lower, token) {
				return Recommendation{Pattern: rule.pattern, Reason: rule.reason}
			}
		}
	}
	return Recommendation{Pattern: models.PatternGrowthAccounting, Reason: defaultRecommendationReason}
}
