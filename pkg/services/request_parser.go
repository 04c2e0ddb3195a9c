package services

import (
	"regexp"
	"strings"

	"github.com/milkyway-analytics/milkyway/pkg/models"
)

// Action is the intent the keyword parser extracted from a message.
type Action string

const (
	ActionRunPattern    Action = "run_pattern"
	ActionExploreSchema Action = "explore_schema"
	ActionHelp          Action = "help"
	ActionRecommend     Action = "recommend"
)

// RequestParams holds whatever the parser could pull out of a message.
type RequestParams struct {
	TimeGrain models.TimeGrain `json:"time_grain,omitempty"`
	Dataset   string           `json:"dataset,omitempty"`
	Table     string           `json:"table,omitempty"`
	Pattern   models.Pattern   `json:"pattern,omitempty"`
}

// ParsedRequest is the parser output. A nil Action means no keyword matched;
// callers treat that as ActionRunPattern.
type ParsedRequest struct {
	Action *Action       `json:"action"`
	Params RequestParams `json:"params"`
}

// EffectiveAction resolves a missing action to run_pattern.
func (r ParsedRequest) EffectiveAction() Action {
	if r.Action == nil {
		return ActionRunPattern
	}
	return *r.Action
}

// EffectiveTimeGrain resolves a missing grain to MONTH.
func (r ParsedRequest) EffectiveTimeGrain() models.TimeGrain {
	if r.Params.TimeGrain == "" {
		return models.DefaultTimeGrain
	}
	return r.Params.TimeGrain
}

// TableRef returns the extracted table reference, if any.
func (r ParsedRequest) TableRef() (models.TableRef, bool) {
	if r.Params.Table == "" {
		return models.TableRef{}, false
	}
	return models.TableRef{Dataset: r.Params.Dataset, Table: r.Params.Table}, true
}

type keywordRule[T any] struct {
	keywords []string
	result   T
}

// Keywords match as plain substrings so inflected forms ("listing",
// "explored", "analyzing") still hit. Buckets are tried in order, which keeps
// "show" from falling through to "how".
var actionRules = []keywordRule[Action]{
	{keywords: []string{"run", "show", "analyz", "calculate", "get"}, result: ActionRunPattern},
	{keywords: []string{"list", "explore", "what tables", "what datasets"}, result: ActionExploreSchema},
	{keywords: []string{"help", "how", "what can", "explain"}, result: ActionHelp},
	{keywords: []string{"recommend", "suggest", "which pattern"}, result: ActionRecommend},
}

var timeGrainRules = []keywordRule[models.TimeGrain]{
	{keywords: []string{"daily"}, result: models.TimeGrainDay},
	{keywords: []string{"weekly"}, result: models.TimeGrainWeek},
	{keywords: []string{"monthly"}, result: models.TimeGrainMonth},
	{keywords: []string{"quarterly"}, result: models.TimeGrainQuarter},
	{keywords: []string{"yearly"}, result: models.TimeGrainYear},
}

var patternRules = []keywordRule[models.Pattern]{
	{keywords: []string{"growth accounting", "growth_accounting"}, result: models.PatternGrowthAccounting},
	{keywords: []string{"cumulative snapshot", "cumulative_snapshot", "snapshot"}, result: models.PatternCumulativeSnapshot},
	{keywords: []string{"retention"}, result: models.PatternRetention},
	{keywords: []string{"cumulative"}, result: models.PatternCumulative},
}

var tableRefPattern = regexp.MustCompile(`(\w+)\.(\w+)`)

// ParseRequest extracts an action, time grain, table reference and explicit
// pattern from free text. Each field takes the first match in its fixed
// priority order.
func ParseRequest(text string) ParsedRequest {
	lower := strings.ToLower(text)
	var parsed ParsedRequest

	if action, ok := firstMatch(lower, actionRules); ok {
		parsed.Action = &action
	}
	if grain, ok := firstMatch(lower, timeGrainRules); ok {
		parsed.Params.TimeGrain = grain
	}
	if pattern, ok := firstMatch(lower, patternRules); ok {
		parsed.Params.Pattern = pattern
	}
	// Match against the original text so identifier case is preserved.
	if m := tableRefPattern.FindStringSubmatch(text); m != nil {
		parsed.Params.Dataset = m[1]
		parsed.Params.Table = m[2]
	}

	return parsed
}

func firstMatch[T any](lower string, rules []keywordRule[T]) (T, bool) {
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.result, true
			}
		}
	}
	var zero T
	return zero, false
}
