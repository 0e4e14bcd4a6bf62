package db

import (
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestFormatNumberPads(t *testing.T) {
	require.Equal(t, "0007", FormatNumber(7, 4))
	require.Equal(t, "12345", FormatNumber(12345, 4))
	require.Equal(t, "42", FormatNumber(42, 0))
}

func TestViolationHelpers(t *testing.T) {
	require.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	require.True(t, IsCheckViolation(&pgconn.PgError{Code: "23514"}))
	require.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23514"}))
	require.False(t, IsUniqueViolation(nil))
}
