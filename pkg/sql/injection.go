package sql

import (
	"fmt"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// InjectionCheckResult describes a literal that libinjection flagged.
type InjectionCheckResult struct {
	Name        string // variable the literal was supplied for
	Value       string
	Fingerprint string // libinjection token fingerprint
}

// CheckLiteral runs libinjection over a value that will be spliced into
// compiled SQL as a literal (for example a snapshot period). Returns nil when
// the value looks clean.
//
//	CheckLiteral("prev_period", "2025-11-15")   // nil
//	CheckLiteral("curr_period", "' OR '1'='1")  // flagged
func CheckLiteral(name, value string) *InjectionCheckResult {
	if value == "" {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(value)
	if !isSQLi {
		return nil
	}
	return &InjectionCheckResult{
		Name:        name,
		Value:       value,
		Fingerprint: string(fingerprint),
	}
}

// ValidateLiterals checks each named literal in order and returns an error
// wrapping apperrors.ErrInvalidLiteral for the first one that is flagged.
func ValidateLiterals(names []string, values map[string]string) error {
	for _, name := range names {
		if result := CheckLiteral(name, values[name]); result != nil {
			return fmt.Errorf("%w: %s=%q (fingerprint %s)", apperrors.ErrInvalidLiteral, result.Name, result.Value, result.Fingerprint)
		}
	}
	return nil
}
