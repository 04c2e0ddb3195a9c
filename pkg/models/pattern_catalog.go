package models

import "github.com/milkyway-analytics/milkyway/pkg/apperrors"

// VariableSpec documents one dbt variable of a pattern for the UI and the wizard.
type VariableSpec struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
	Group       string `json:"group,omitempty"`   // all-or-nothing group name
	Example     string `json:"example,omitempty"` // prefill for manual entry
	Description string `json:"description,omitempty"`
}

// PatternContract lists a pattern's variables in declared order.
type PatternContract struct {
	Pattern     Pattern        `json:"pattern"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Variables   []VariableSpec `json:"variables"`
}

// RequiredVariables returns the names of the required variables in declared order.
func (c PatternContract) RequiredVariables() []string {
	var names []string
	for _, v := range c.Variables {
		if v.Required {
			names = append(names, v.Name)
		}
	}
	return names
}

const (
	GroupFirstActivation = "first_activation"
	GroupDateSpine       = "date_spine"
)

var catalog = map[Pattern]PatternContract{
	PatternGrowthAccounting: {
		Pattern:     PatternGrowthAccounting,
		Title:       "Growth accounting",
		Description: "Classifies customers each period as new, retained, resurrected or churned.",
		Variables: []VariableSpec{
			{Name: VarActivityTable, Label: "Activity table", Required: true, Example: "sessions.user_activity"},
			{Name: VarActivityCustomerID, Label: "Customer ID column", Required: true, Example: "user_id"},
			{Name: VarActivityTimestamp, Label: "Activity timestamp column", Required: true, Example: "event_time"},
			{Name: VarTimeGrain, Label: "Time grain", Default: string(DefaultTimeGrain)},
			{Name: VarFirstActivationTable, Label: "First activation table", Group: GroupFirstActivation},
			{Name: VarFirstActivationCustomerID, Label: "Activation customer ID column", Group: GroupFirstActivation, Example: "customer_id"},
			{Name: VarFirstActivationTimestamp, Label: "Activation timestamp column", Group: GroupFirstActivation, Example: "activation_timestamp"},
			{Name: VarDateSpineTable, Label: "Date spine table", Group: GroupDateSpine},
			{Name: VarDateSpineColumn, Label: "Date spine column", Group: GroupDateSpine, Example: "date_day"},
		},
	},
	PatternRetention: {
		Pattern:     PatternRetention,
		Title:       "Retention",
		Description: "Cohort-based retention: share of each signup cohort active in later periods.",
		Variables: []VariableSpec{
			{Name: VarSourceTable, Label: "Source table", Required: true, Example: "sessions.user_activity"},
			{Name: VarCustomerID, Label: "Customer ID column", Required: true, Example: "user_id"},
			{Name: VarActivityTimestamp, Label: "Activity timestamp column", Required: true, Example: "event_time"},
		},
	},
	PatternCumulativeSnapshot: {
		Pattern:     PatternCumulativeSnapshot,
		Title:       "Cumulative snapshot",
		Description: "Outer-joins yesterday's snapshot with today's facts to keep running totals.",
		Variables: []VariableSpec{
			{Name: VarSnapshotTable, Label: "Snapshot table (previous state)", Required: true, Example: "user_snapshot"},
			{Name: VarFactTable, Label: "Fact table (current period events)", Required: true, Example: "user_events"},
			{Name: VarKeyColumn, Label: "Key column", Required: true, Example: "user_id"},
			{Name: VarPeriodColumn, Label: "Period column", Required: true, Example: "dt"},
			{Name: VarPrevPeriod, Label: "Previous period", Required: true, Example: "2025-11-15"},
			{Name: VarCurrPeriod, Label: "Current period", Required: true, Example: "2025-11-16"},
			{Name: VarMetricType, Label: "Metric type", Default: string(MetricTypeCount), Description: "count or sum"},
			{Name: VarMetricColumn, Label: "Metric column", Description: "required when metric type is sum"},
			{Name: VarTodayColName, Label: "Today column name", Default: DefaultTodayColName},
			{Name: VarCumulativeColName, Label: "Cumulative column name", Default: DefaultCumulativeColName},
		},
	},
	PatternCumulative: {
		Pattern:     PatternCumulative,
		Title:       "Cumulative (legacy)",
		Description: "Simple running count of entities per event over a whole dataset.",
		Variables: []VariableSpec{
			{Name: VarSourceDataset, Label: "Dataset", Required: true, Example: "sessions", Description: "also accepted as dataset_name"},
			{Name: VarEntityID, Label: "Entity ID column", Required: true, Example: "user_id"},
			{Name: VarEventTimestamp, Label: "Event timestamp column", Required: true, Example: "event_time"},
			{Name: VarEventType, Label: "Event type column"},
		},
	},
}

// Contract returns the variable contract of p.
func Contract(p Pattern) (PatternContract, error) {
	c, ok := catalog[p]
	if !ok {
		return PatternContract{}, &apperrors.UnknownPatternError{Pattern: string(p)}
	}
	return c, nil
}

// Contracts returns every contract in AllPatterns order.
func Contracts() []PatternContract {
	out := make([]PatternContract, 0, len(catalog))
	for _, p := range AllPatterns() {
		out = append(out, catalog[p])
	}
	return out
}

// Defaults returns the RawConfig layer of declared defaults for p.
func Defaults(p Pattern) RawConfig {
	raw := RawConfig{}
	if c, ok := catalog[p]; ok {
		for _, v := range c.Variables {
			if v.Default != "" {
				raw[v.Name] = v.Default
			}
		}
	}
	return raw
}

// Examples returns the manual-entry prefill values for p.
func Examples(p Pattern) RawConfig {
	raw := RawConfig{}
	if c, ok := catalog[p]; ok {
		for _, v := range c.Variables {
			if v.Example != "" {
				raw[v.Name] = v.Example
			}
		}
	}
	return raw
}
