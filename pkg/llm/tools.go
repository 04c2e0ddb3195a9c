package llm

// ToolDefinition defines a tool that can be called by the LLM.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ParameterProperty defines a parameter property in JSON Schema format.
type ParameterProperty struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
	Default     any      `json:"default,omitempty"`
}

// NewToolDefinition creates a new tool definition with standard JSON Schema parameters.
func NewToolDefinition(name, description string, properties map[string]ParameterProperty, required []string) ToolDefinition {
	props := make(map[string]any)
	for k, v := range properties {
		prop := map[string]any{"type": v.Type}
		if v.Description != "" {
			prop["description"] = v.Description
		}
		if len(v.Enum) > 0 {
			prop["enum"] = v.Enum
		}
		if v.Default != nil {
			prop["default"] = v.Default
		}
		props[k] = prop
	}
	if required == nil {
		required = []string{}
	}

	return ToolDefinition{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// Assistant tool names.
const (
	ToolListDatasets              = "list_datasets"
	ToolListTables                = "list_tables"
	ToolGetTableSchema            = "get_table_schema"
	ToolPreviewTable              = "preview_table"
	ToolRunQuery                  = "run_query"
	ToolConfigureGrowthAccounting = "configure_growth_accounting"
	ToolRememberPreference        = "remember_preference"
	ToolRememberFact              = "remember_fact"
)

// AssistantTools returns the tools offered to the analytics assistant. The
// same set is exposed over MCP.
func AssistantTools() []ToolDefinition {
	return []ToolDefinition{
		NewToolDefinition(
			ToolListDatasets,
			"List all datasets (schemas) available in the warehouse",
			map[string]ParameterProperty{},
			nil,
		),
		NewToolDefinition(
			ToolListTables,
			"List all tables in a warehouse dataset",
			map[string]ParameterProperty{
				"dataset": {Type: "string", Description: "Dataset name (e.g., 'sessions')"},
			},
			[]string{"dataset"},
		),
		NewToolDefinition(
			ToolGetTableSchema,
			"Get the column names and types for a table",
			map[string]ParameterProperty{
				"dataset": {Type: "string", Description: "Dataset name"},
				"table":   {Type: "string", Description: "Table name"},
			},
			[]string{"dataset", "table"},
		),
		NewToolDefinition(
			ToolPreviewTable,
			"Preview sample rows from a table to understand its data",
			map[string]ParameterProperty{
				"dataset": {Type: "string"},
				"table":   {Type: "string"},
				"limit":   {Type: "integer", Default: 5},
			},
			[]string{"dataset", "table"},
		),
		NewToolDefinition(
			ToolRunQuery,
			"Run a read-only SQL query; results are limited to the given number of rows",
			map[string]ParameterProperty{
				"sql":   {Type: "string", Description: "A single SELECT statement"},
				"limit": {Type: "integer", Default: 100},
			},
			[]string{"sql"},
		),
		NewToolDefinition(
			ToolConfigureGrowthAccounting,
			"Configure the growth accounting pattern with specified parameters. Use this when the user wants to analyze user growth, churn, retention categories (New, Retained, Resurrected, Lost, Churned).",
			map[string]ParameterProperty{
				"activity_table":     {Type: "string", Description: "Full table name as dataset.table (e.g., 'sessions.user_activity')"},
				"customer_id_column": {Type: "string", Description: "Column containing customer/user ID"},
				"timestamp_column":   {Type: "string", Description: "Column containing event timestamp"},
				"time_grain":         {Type: "string", Enum: []string{"DAY", "WEEK", "MONTH", "QUARTER", "YEAR"}, Default: "MONTH"},
			},
			[]string{"activity_table", "customer_id_column", "timestamp_column"},
		),
		NewToolDefinition(
			ToolRememberPreference,
			"Remember a user preference for future sessions",
			map[string]ParameterProperty{
				"key":   {Type: "string", Description: "Preference name (e.g., 'default_time_grain', 'favorite_table')"},
				"value": {Type: "string", Description: "Preference value"},
			},
			[]string{"key", "value"},
		),
		NewToolDefinition(
			ToolRememberFact,
			"Remember an important fact about the user or their data for future reference",
			map[string]ParameterProperty{
				"fact": {Type: "string", Description: "The fact to remember"},
			},
			[]string{"fact"},
		),
	}
}
