// Package sql holds the small SQL safety helpers used before text reaches a warehouse.
package sql

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")

	// ErrEmptyStatement is returned for blank input.
	ErrEmptyStatement = errors.New("empty SQL statement")

	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$-]*$`)
)

// NormalizeStatement prepares SQL for wrapping in an outer
// SELECT * FROM (...) LIMIT n. Trailing semicolons and whitespace are removed;
// any other semicolon outside a quoted string means a second statement.
func NormalizeStatement(sqlQuery string) (string, error) {
	normalized := stripTrailingSemicolons(strings.TrimSpace(sqlQuery))
	if normalized == "" {
		return "", ErrEmptyStatement
	}
	if hasSemicolonOutsideStrings(normalized) {
		return "", ErrMultipleStatements
	}
	return normalized, nil
}

// IsValidIdentifier reports whether name can be used as a bare dataset or
// table identifier. Hyphens are accepted for BigQuery-style project names.
func IsValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch {
			case char == ';':
				return true
			case char == '\'':
				state = stateSingleQuote
			case char == '"':
				state = stateDoubleQuote
			case char == '-' && prevChar == '-':
				state = stateLineComment
			}
		case stateSingleQuote:
			// '' re-enters on the next quote, which keeps us inside the literal
			if char == '\'' && prevChar != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		case stateLineComment:
			if char == '\n' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// dbt output often ends with ";\n" or several blank lines.
func stripTrailingSemicolons(sqlQuery string) string {
	for {
		trimmed := strings.TrimRight(sqlQuery, " \t\n\r")
		if !strings.HasSuffix(trimmed, ";") {
			return trimmed
		}
		sqlQuery = strings.TrimSuffix(trimmed, ";")
	}
}
