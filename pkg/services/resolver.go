package services

import (
	"context"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/sql"
)

// literalVariables are spliced into compiled SQL as quoted literals rather
// than identifiers, so they get an injection check on top of validation.
var literalVariables = map[models.Pattern][]string{
	models.PatternCumulativeSnapshot: {models.VarPrevPeriod, models.VarCurrPeriod},
}

// variableAliases maps user-facing field names onto dbt variable names.
var variableAliases = map[models.Pattern]map[string]string{
	models.PatternGrowthAccounting: {
		models.AliasCustomerIDColumn: models.VarActivityCustomerID,
		models.AliasTimestampColumn:  models.VarActivityTimestamp,
	},
	models.PatternRetention: {
		models.AliasCustomerIDColumn: models.VarCustomerID,
		models.AliasTimestampColumn:  models.VarActivityTimestamp,
	},
	models.PatternCumulative: {
		models.AliasDatasetName: models.VarSourceDataset,
	},
}

// AssembleRawConfig layers pattern defaults, detected values and explicit
// user input, in that order of increasing priority. Aliases are renamed
// per layer first, so a user's dataset_name beats a detected source_dataset.
func AssembleRawConfig(p models.Pattern, detected, user models.RawConfig) models.RawConfig {
	return models.MergeRawConfig(models.Defaults(p), canonicalize(p, detected), canonicalize(p, user))
}

// canonicalize renames alias keys of one layer to their dbt names. Within
// a layer the canonical key wins over its alias.
func canonicalize(p models.Pattern, raw models.RawConfig) models.RawConfig {
	aliases := variableAliases[p]
	out := make(models.RawConfig, len(raw))
	for k, v := range raw {
		if _, isAlias := aliases[k]; !isAlias {
			out[k] = v
		}
	}
	for alias, canonical := range aliases {
		if out.Has(canonical) {
			continue
		}
		if v, ok := raw.Get(alias); ok {
			out[canonical] = v
		}
	}
	return out
}

// Resolve turns a raw configuration into the exact variable payload for
// pattern p. Defaults are applied under raw; required fields are never
// defaulted.
func Resolve(p models.Pattern, raw models.RawConfig) (models.ResolvedVariables, error) {
	cfg, err := BuildPatternConfig(p, models.MergeRawConfig(models.Defaults(p), raw))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	vars := cfg.Variables()
	if err := sql.ValidateLiterals(literalVariables[p], vars); err != nil {
		return nil, err
	}
	return vars, nil
}

// ResolveForTable is Resolve with the detection layer filled from
// detectTable's columns. An empty detectTable skips detection. A failed
// lookup (already logged by the schema service) leaves the detection layer
// empty, so the user's own values decide between success and a
// MissingRequiredFieldError.
func ResolveForTable(ctx context.Context, schema SchemaService, p models.Pattern, detectTable string, user models.RawConfig) (models.ResolvedVariables, error) {
	detected := models.RawConfig{}
	if detectTable != "" {
		ref := models.ParseTableRef(detectTable)
		if columns, err := schema.GetSchema(ctx, ref.Dataset, ref.Table); err == nil {
			detected = DetectedRawConfig(p, ref, DetectColumns(columns))
		}
	}
	return Resolve(p, AssembleRawConfig(p, detected, user))
}

// Serialize renders resolved variables as the --vars argument.
func Serialize(vars models.ResolvedVariables) (string, error) {
	return vars.JSON()
}

// BuildPatternConfig maps raw values onto the typed variant for p without
// validating required fields. Enumerated values (time grain, metric type)
// are normalized here and rejected when unknown.
func BuildPatternConfig(p models.Pattern, raw models.RawConfig) (models.PatternConfig, error) {
	value := func(keys ...string) string {
		v, _ := raw.First(keys...)
		return v
	}

	switch p {
	case models.PatternGrowthAccounting:
		cfg := &models.GrowthAccountingConfig{
			ActivityTable:      value(models.VarActivityTable),
			ActivityCustomerID: value(models.VarActivityCustomerID, models.AliasCustomerIDColumn),
			ActivityTimestamp:  value(models.VarActivityTimestamp, models.AliasTimestampColumn),
			TimeGrain:          models.DefaultTimeGrain,
		}
		if g, ok := raw.Get(models.VarTimeGrain); ok {
			grain, err := models.ParseTimeGrain(g)
			if err != nil {
				return nil, err
			}
			cfg.TimeGrain = grain
		}
		if raw.Has(models.VarFirstActivationTable, models.VarFirstActivationCustomerID, models.VarFirstActivationTimestamp) {
			cfg.FirstActivation = &models.ActivationSource{
				Table:      value(models.VarFirstActivationTable),
				CustomerID: value(models.VarFirstActivationCustomerID),
				Timestamp:  value(models.VarFirstActivationTimestamp),
			}
		}
		if raw.Has(models.VarDateSpineTable, models.VarDateSpineColumn) {
			cfg.DateSpine = &models.DateSpine{
				Table:  value(models.VarDateSpineTable),
				Column: value(models.VarDateSpineColumn),
			}
		}
		return cfg, nil

	case models.PatternRetention:
		return &models.RetentionConfig{
			SourceTable:       value(models.VarSourceTable),
			CustomerID:        value(models.VarCustomerID, models.AliasCustomerIDColumn),
			ActivityTimestamp: value(models.VarActivityTimestamp, models.AliasTimestampColumn),
		}, nil

	case models.PatternCumulativeSnapshot:
		cfg := &models.CumulativeSnapshotConfig{
			SnapshotTable:     value(models.VarSnapshotTable),
			FactTable:         value(models.VarFactTable),
			KeyColumn:         value(models.VarKeyColumn),
			PeriodColumn:      value(models.VarPeriodColumn),
			PrevPeriod:        value(models.VarPrevPeriod),
			CurrPeriod:        value(models.VarCurrPeriod),
			MetricType:        models.MetricTypeCount,
			TodayColName:      value(models.VarTodayColName),
			CumulativeColName: value(models.VarCumulativeColName),
		}
		if m, ok := raw.Get(models.VarMetricType); ok {
			metricType, err := models.ParseMetricType(m)
			if err != nil {
				return nil, err
			}
			cfg.MetricType = metricType
		}
		// metric_column only means something for sums
		if cfg.MetricType == models.MetricTypeSum {
			cfg.MetricColumn = value(models.VarMetricColumn)
		}
		return cfg, nil

	case models.PatternCumulative:
		return &models.LegacyCumulativeConfig{
			SourceDataset:  value(models.VarSourceDataset, models.AliasDatasetName),
			EntityID:       value(models.VarEntityID),
			EventTimestamp: value(models.VarEventTimestamp),
			EventType:      value(models.VarEventType),
		}, nil

	default:
		return nil, &apperrors.UnknownPatternError{Pattern: string(p)}
	}
}
