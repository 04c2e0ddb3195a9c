package models

import (
	"fmt"
	"strings"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// Pattern names a pre-built analytics model in the dbt project. The value is
// also the dbt model name passed to --models.
type Pattern string

const (
	PatternGrowthAccounting   Pattern = "growth_accounting"
	PatternRetention          Pattern = "retention"
	PatternCumulativeSnapshot Pattern = "cumulative_snapshot"

	// PatternCumulative is the legacy simple-schema cumulative model.
	PatternCumulative Pattern = "cumulative"
)

// AllPatterns returns the closed set of patterns in display order.
func AllPatterns() []Pattern {
	return []Pattern{
		PatternGrowthAccounting,
		PatternRetention,
		PatternCumulativeSnapshot,
		PatternCumulative,
	}
}

// Valid reports whether p belongs to the closed set.
func (p Pattern) Valid() bool {
	for _, known := range AllPatterns() {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePattern accepts a pattern name case-insensitively.
func ParsePattern(name string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(name)))
	if !p.Valid() {
		return "", &apperrors.UnknownPatternError{Pattern: name}
	}
	return p, nil
}

// TimeGrain is the bucketing granularity for time-series patterns.
type TimeGrain string

const (
	TimeGrainDay     TimeGrain = "DAY"
	TimeGrainWeek    TimeGrain = "WEEK"
	TimeGrainMonth   TimeGrain = "MONTH"
	TimeGrainQuarter TimeGrain = "QUARTER"
	TimeGrainYear    TimeGrain = "YEAR"
)

// DefaultTimeGrain applies when a request names no grain.
const DefaultTimeGrain = TimeGrainMonth

// AllTimeGrains returns the grains in ascending size.
func AllTimeGrains() []TimeGrain {
	return []TimeGrain{TimeGrainDay, TimeGrainWeek, TimeGrainMonth, TimeGrainQuarter, TimeGrainYear}
}

// ParseTimeGrain accepts a grain name case-insensitively.
func ParseTimeGrain(s string) (TimeGrain, error) {
	g := TimeGrain(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllTimeGrains() {
		if g == known {
			return g, nil
		}
	}
	return "", fmt.Errorf("%w: time_grain %q must be one of DAY, WEEK, MONTH, QUARTER, YEAR", apperrors.ErrInvalidRequest, s)
}

// MetricType selects the aggregation used by the cumulative snapshot pattern.
type MetricType string

const (
	MetricTypeCount MetricType = "count"
	MetricTypeSum   MetricType = "sum"
)

// ParseMetricType accepts count or sum case-insensitively.
func ParseMetricType(s string) (MetricType, error) {
	switch MetricType(strings.ToLower(strings.TrimSpace(s))) {
	case MetricTypeCount:
		return MetricTypeCount, nil
	case MetricTypeSum:
		return MetricTypeSum, nil
	}
	return "", fmt.Errorf("%w: metric_type %q must be count or sum", apperrors.ErrInvalidRequest, s)
}
