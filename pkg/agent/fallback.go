package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
	"github.com/milkyway-analytics/milkyway/pkg/logging"
	"github.com/milkyway-analytics/milkyway/pkg/memory"
	"github.com/milkyway-analytics/milkyway/pkg/models"
	"github.com/milkyway-analytics/milkyway/pkg/services"
)

// defaultExploreDataset is listed when the message names no dataset.
const defaultExploreDataset = "sessions"

// PreferenceTimeGrain is the memory preference consulted when a message
// names no time grain.
const PreferenceTimeGrain = "default_time_grain"

const helpText = `**I can help you with:**

🔍 **Explore:** "What tables are available?"
📊 **Configure:** "Run growth accounting on sessions.user_activity"
💡 **Recommend:** "Which pattern for churn analysis?"

⚠️ **Note:** Running in basic mode (no LLM). Set ANTHROPIC_API_KEY or OPENAI_API_KEY, or run ` + "`milkyway auth set-key`" + `, for full capabilities.`

const specifyTableText = "Please specify a table (e.g., 'sessions.user_activity') or ask for help."

// RuleBasedResponder answers without an LLM: the request parser picks an
// action and the recommender, introspector, detector and resolver do the
// rest. It needs no network beyond the warehouse, and warehouse failures
// come back as text.
type RuleBasedResponder struct {
	schema services.SchemaService
	memory *memory.Store
	logger *zap.Logger
}

// NewRuleBasedResponder creates the keyword-driven responder.
func NewRuleBasedResponder(schema services.SchemaService, mem *memory.Store, logger *zap.Logger) *RuleBasedResponder {
	return &RuleBasedResponder{
		schema: schema,
		memory: mem,
		logger: logger.Named("fallback"),
	}
}

// Respond builds a reply for text.
func (r *RuleBasedResponder) Respond(ctx context.Context, text string) *Reply {
	parsed := services.ParseRequest(text)

	switch parsed.EffectiveAction() {
	case services.ActionExploreSchema:
		return &Reply{Text: r.explore(ctx, parsed)}
	case services.ActionHelp:
		return &Reply{Text: helpText}
	case services.ActionRecommend:
		rec := services.RecommendPattern(text)
		return &Reply{Text: fmt.Sprintf("**Recommended pattern:** %s\n\n%s", rec.Pattern, rec.Reason)}
	default:
		return r.configure(ctx, text, parsed)
	}
}

func (r *RuleBasedResponder) explore(ctx context.Context, parsed services.ParsedRequest) string {
	datasets, err := r.schema.ListDatasets(ctx)
	if err != nil {
		return "Couldn't list datasets: " + logging.SanitizeError(err)
	}
	if len(datasets) == 0 {
		return "No datasets found in the warehouse."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Datasets:** %s\n\n", strings.Join(datasets, ", "))

	dataset := parsed.Params.Dataset
	if dataset == "" {
		dataset = datasets[0]
		if slices.Contains(datasets, defaultExploreDataset) {
			dataset = defaultExploreDataset
		}
	}
	tables, err := r.schema.ListTables(ctx, dataset)
	if err != nil {
		fmt.Fprintf(&b, "Couldn't list tables in '%s': %s", dataset, logging.SanitizeError(err))
		return b.String()
	}
	fmt.Fprintf(&b, "**Tables in '%s':** %s (%s)", dataset, strings.Join(tables, ", "), tableCount(len(tables)))
	return b.String()
}

func (r *RuleBasedResponder) configure(ctx context.Context, text string, parsed services.ParsedRequest) *Reply {
	ref, ok := parsed.TableRef()
	if !ok {
		return &Reply{Text: specifyTableText}
	}

	pattern := parsed.Params.Pattern
	if pattern == "" {
		pattern = services.RecommendPattern(text).Pattern
	}

	columns, err := r.schema.GetSchema(ctx, ref.Dataset, ref.Table)
	if err != nil {
		return &Reply{Text: "Couldn't access table: " + logging.SanitizeError(err)}
	}

	detected := services.DetectColumns(columns)
	if !detected.Complete() {
		return &Reply{Text: "Found table but couldn't auto-detect columns.\nSchema: " + describeColumns(columns)}
	}

	user := models.RawConfig{}
	if pattern == models.PatternGrowthAccounting {
		user[models.VarTimeGrain] = string(r.timeGrain(parsed))
	}
	raw := models.MergeRawConfig(services.DetectedRawConfig(pattern, ref, detected), user)

	vars, err := services.Resolve(pattern, raw)
	if err != nil {
		var missing *apperrors.MissingRequiredFieldError
		if errors.As(err, &missing) {
			return &Reply{Text: fmt.Sprintf(
				"Detected `%s` and `%s` on `%s` for %s, but `%s` still needs a value. Fill in the remaining fields in the form.",
				*detected.CustomerID, *detected.Timestamp, ref, pattern, missing.Field)}
		}
		return &Reply{Text: "Couldn't configure " + string(pattern) + ": " + logging.SanitizeError(err)}
	}

	if err := r.memory.AddRecentTable(ref.String()); err != nil {
		r.logger.Warn("Failed to persist recent table", zap.Error(err))
	}

	return &Reply{
		Text:            describeConfig(pattern, vars),
		SuggestedConfig: &SuggestedConfig{Pattern: pattern, Variables: vars},
	}
}

// timeGrain prefers the grain named in the message, then the remembered
// preference, then MONTH.
func (r *RuleBasedResponder) timeGrain(parsed services.ParsedRequest) models.TimeGrain {
	if parsed.Params.TimeGrain != "" {
		return parsed.Params.TimeGrain
	}
	if pref, ok := r.memory.Preference(PreferenceTimeGrain); ok {
		if grain, err := models.ParseTimeGrain(pref); err == nil {
			return grain
		}
	}
	return models.DefaultTimeGrain
}

func describeConfig(pattern models.Pattern, vars models.ResolvedVariables) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Configured %s:**\n", pattern)
	if contract, err := models.Contract(pattern); err == nil {
		for _, v := range contract.Variables {
			if value, ok := vars[v.Name]; ok {
				fmt.Fprintf(&b, "- %s: `%s`\n", v.Label, value)
			}
		}
	}
	b.WriteString("\nClick **Apply Configuration** to fill the form.")
	return b.String()
}

func describeColumns(columns []models.ColumnDescriptor) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = fmt.Sprintf("%s (%s)", c.Name, c.Type)
	}
	return strings.Join(parts, ", ")
}

func tableCount(n int) string {
	if n == 1 {
		return "1 table"
	}
	return fmt.Sprintf("%d tables", n)
}
