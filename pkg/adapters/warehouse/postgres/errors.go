package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/milkyway-analytics/milkyway/pkg/adapters/warehouse"
	"github.com/milkyway-analytics/milkyway/pkg/apperrors"
)

// classifyError maps SQLSTATE codes onto lookup kinds.
func classifyError(err error) apperrors.SchemaLookupKind {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01", // undefined_table
			"3F000", // invalid_schema_name
			"3D000": // invalid_catalog_name
			return apperrors.SchemaLookupNotFound
		case "42501", // insufficient_privilege
			"28P01", // invalid_password
			"28000": // invalid_authorization_specification
			return apperrors.SchemaLookupPermissionDenied
		}
		return apperrors.SchemaLookupTransient
	}
	return warehouse.ClassifyByMessage(err)
}
