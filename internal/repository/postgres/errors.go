package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"ai-chat/internal/apperr"

	"github.com/lib/pq"
)

// mapError translates driver errors into apperr kinds. parent names the row a foreign
// key violation points at.
func mapError(entity, id, parent, parentID string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &apperr.NotFoundError{Entity: entity, ID: id, Err: err}
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return fmt.Errorf("%s query failed: %w", entity, err)
	}

	switch pqErr.Code {
	case "23503": // foreign_key_violation
		return &apperr.NotFoundError{Entity: parent, ID: parentID, Err: err}
	case "23505": // unique_violation
		return &apperr.ConflictError{Entity: entity, ID: id, Err: err}
	case "23514", "23502", "22P02", "22001", "22023": // check, not null, invalid text, too long, invalid parameter
		field := pqErr.Column
		if field == "" {
			field = pqErr.Constraint
		}
		return &apperr.ValidationError{
			Entity: entity,
			Fields: []apperr.FieldError{{Field: field, Rule: string(pqErr.Code), Message: pqErr.Message}},
			Err:    err,
		}
	}
	return fmt.Errorf("%s query failed: %w", entity, err)
}
