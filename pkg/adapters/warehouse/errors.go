package warehouse

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// ErrorClassifier maps a driver error onto a schema lookup kind.
type ErrorClassifier func(err error) apperrors.SchemaLookupKind

// LookupError wraps err as a *apperrors.SchemaLookupError using classify.
// Errors that are already lookup errors pass through unchanged.
func LookupError(dataset, table string, err error, classify ErrorClassifier) error {
	if err == nil {
		return nil
	}
	var existing *apperrors.SchemaLookupError
	if errors.As(err, &existing) {
		return err
	}
	if classify == nil {
		classify = ClassifyByMessage
	}
	return &apperrors.SchemaLookupError{
		Kind:    classify(err),
		Dataset: dataset,
		Table:   table,
		Cause:   err,
	}
}

// NotFound builds the lookup error for a table that information_schema does not know.
func NotFound(dataset, table string) error {
	return &apperrors.SchemaLookupError{Kind: apperrors.SchemaLookupNotFound, Dataset: dataset, Table: table}
}

var (
	notFoundMarkers = []string{
		"does not exist",
		"not found",
		"invalid object name",
		"catalog error",
		"unknown database",
	}
	permissionMarkers = []string{
		"permission denied",
		"access denied",
		"not authorized",
		"insufficient privileges",
		"login failed",
		"authentication failed",
		"password authentication failed",
	}
)

// ClassifyByMessage is the fallback classifier for drivers without
// structured error codes. Timeouts and network failures are transient.
func ClassifyByMessage(err error) apperrors.SchemaLookupKind {
	if IsTransient(err) {
		return apperrors.SchemaLookupTransient
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range notFoundMarkers {
		if strings.Contains(msg, marker) {
			return apperrors.SchemaLookupNotFound
		}
	}
	for _, marker := range permissionMarkers {
		if strings.Contains(msg, marker) {
			return apperrors.SchemaLookupPermissionDenied
		}
	}
	return apperrors.SchemaLookupTransient
}

// IsTransient reports deadline, cancellation and network errors.
func IsTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
