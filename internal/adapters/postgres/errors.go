package postgres

import (
	"errors"
	"fmt"
	"listing-ingest-service/internal/core/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Имена ограничений из deploy/schema.sql
const (
	constraintCommunityActiveName = "communities_active_name_key"
	constraintAliasNameSource     = "community_aliases_name_source_key"
	constraintPropertyNaturalKey  = "properties_natural_key"
)

// mapPgError переводит нарушения ограничений в domain.IntegrityError с текстом для оператора.
// Остальные ошибки возвращаются как есть.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	var msg string
	switch pgErr.Code {
	case "23505": // unique_violation
		switch pgErr.ConstraintName {
		case constraintCommunityActiveName:
			msg = "an active community with this name already exists"
		case constraintAliasNameSource:
			msg = "this alias is already registered for the data source"
		case constraintPropertyNaturalKey:
			msg = "a listing with this data source and source property id already exists"
		default:
			msg = "a record with the same unique key already exists"
		}
	case "23503": // foreign_key_violation
		msg = "the record references data that does not exist"
	case "23502": // not_null_violation
		msg = fmt.Sprintf("required value %q is missing", pgErr.ColumnName)
	case "23514": // check_violation
		msg = fmt.Sprintf("value is out of the allowed range (%s)", pgErr.ConstraintName)
	default:
		return err
	}

	return &domain.IntegrityError{Constraint: pgErr.ConstraintName, Message: msg, Err: err}
}
