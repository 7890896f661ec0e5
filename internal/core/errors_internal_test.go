package core

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestClassifyPgError(t *testing.T) {
	log := zap.NewNop()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "customers_email_key"}, want: ErrConflict},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, want: ErrValidation},
		{name: "check", err: &pgconn.PgError{Code: "23514"}, want: ErrValidation},
		{name: "numeric overflow", err: &pgconn.PgError{Code: "22003", Message: "numeric field overflow"}, want: ErrValidation},
		{name: "other driver error", err: &pgconn.PgError{Code: "40001"}, want: ErrPersistence},
		{name: "plain error", err: errors.New("connection reset"), want: ErrPersistence},
		{name: "already classified", err: &NotFoundError{Entity: "order", ID: 3}, want: ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyPgError(log, "insert order", tt.err), tt.want)
		})
	}
}

func TestClassifyPgError_OverflowNamesField(t *testing.T) {
	err := classifyPgError(zap.NewNop(), "insert order", &pgconn.PgError{Code: "22003"})

	var ve *ValidationError
	if assert.ErrorAs(t, err, &ve) {
		assert.Equal(t, "insert order", ve.Fields[0].Field)
	}
}
