package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "acknowledgements_supervision_id_key"})
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "supervisions_minister_policy_id_fkey"}

	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsForeignKeyViolation(unique))
	assert.Equal(t, "acknowledgements_supervision_id_key", ConstraintName(unique))

	assert.True(t, IsForeignKeyViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.Equal(t, "", ConstraintName(errors.New("plain")))
}

func TestQ_WithoutScope(t *testing.T) {
	_, err := Q(context.Background())
	assert.ErrorIs(t, err, ErrNoScope)

	err = InTx(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrNoScope)
}
