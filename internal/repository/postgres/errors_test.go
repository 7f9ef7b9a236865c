package postgres

import (
	"database/sql"
	"errors"
	"testing"

	"ai-chat/internal/apperr"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"no rows", sql.ErrNoRows, apperr.IsNotFound},
		{"foreign key", &pq.Error{Code: "23503"}, apperr.IsNotFound},
		{"unique", &pq.Error{Code: "23505"}, apperr.IsConflict},
		{"check", &pq.Error{Code: "23514", Constraint: "message_embeddings_dimensions_match"}, apperr.IsValidation},
		{"bad enum", &pq.Error{Code: "22P02"}, apperr.IsValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(mapError("message", "id", "conversation", "cid", tt.err)))
		})
	}

	err := mapError("message", "id", "", "", errors.New("broken pipe"))
	assert.False(t, apperr.IsNotFound(err) || apperr.IsConflict(err) || apperr.IsValidation(err))
	assert.ErrorContains(t, err, "broken pipe")

	assert.NoError(t, mapError("message", "", "", "", nil))
}

func TestMapError_ForeignKeyNamesParent(t *testing.T) {
	err := mapError("message", "mid", "conversation", "cid", &pq.Error{Code: "23503"})

	var nf *apperr.NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, "conversation", nf.Entity)
	assert.Equal(t, "cid", nf.ID)
}
