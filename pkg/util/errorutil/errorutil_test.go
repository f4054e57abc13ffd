package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"domain error passes through", NewConflict("taken", nil), "CONFLICT", http.StatusConflict},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewNotFound("agent", nil)), "NOT_FOUND", http.StatusNotFound},
		{"no rows", fmt.Errorf("get: %w", pgx.ErrNoRows), "NOT_FOUND", http.StatusNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505", ConstraintName: "email_accounts_name_key"}, "CONFLICT", http.StatusConflict},
		{"invalid uuid text", fmt.Errorf("scan: %w", &pgconn.PgError{Code: "22P02"}), "VALIDATION_FAILED", http.StatusBadRequest},
		{"other postgres error", &pgconn.PgError{Code: "40001"}, "INTERNAL_ERROR", http.StatusInternalServerError},
		{"fiber error", fiber.NewError(http.StatusBadRequest, "invalid payload"), "VALIDATION_FAILED", http.StatusBadRequest},
		{"unknown", errors.New("boom"), "INTERNAL_ERROR", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToDomainError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestMapErrorNil(t *testing.T) {
	assert.NoError(t, MapError(nil))
	assert.Nil(t, ToDomainError(nil))
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial tcp")
}
