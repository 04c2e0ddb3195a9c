package sql

import (
	"errors"
	"testing"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

func TestCheckLiteral(t *testing.T) {
	tests := []struct {
		name            string
		value           string
		expectInjection bool
	}{
		{name: "iso date", value: "2025-11-15", expectInjection: false},
		{name: "month period", value: "2025-11", expectInjection: false},
		{name: "empty", value: "", expectInjection: false},
		{name: "apostrophe in name", value: "O'Brien", expectInjection: false},
		{name: "tautology", value: "' OR '1'='1", expectInjection: true},
		{name: "stacked drop", value: "'; DROP TABLE users--", expectInjection: true},
		{name: "union select", value: "1 UNION SELECT * FROM passwords", expectInjection: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckLiteral("prev_period", tt.value)
			if tt.expectInjection && result == nil {
				t.Fatalf("expected %q to be flagged", tt.value)
			}
			if !tt.expectInjection && result != nil {
				t.Fatalf("expected %q to pass, got fingerprint %s", tt.value, result.Fingerprint)
			}
			if result != nil && result.Name != "prev_period" {
				t.Errorf("expected name prev_period, got %s", result.Name)
			}
		})
	}
}

func TestValidateLiterals(t *testing.T) {
	values := map[string]string{
		"prev_period": "2025-11-15",
		"curr_period": "' OR 1=1--",
	}

	err := ValidateLiterals([]string{"prev_period", "curr_period"}, values)
	if !errors.Is(err, apperrors.ErrInvalidLiteral) {
		t.Fatalf("expected ErrInvalidLiteral, got %v", err)
	}

	values["curr_period"] = "2025-11-16"
	if err := ValidateLiterals([]string{"prev_period", "curr_period"}, values); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
