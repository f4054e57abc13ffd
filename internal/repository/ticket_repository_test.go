package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskops/itsm-service/internal/domain"
)

const countOpenSQL = `SELECT assignee_id, COUNT\(\*\)\s+FROM %s\s+` +
	`WHERE tenant_id=\$1 AND status <> \$2 AND assignee_id IS NOT NULL\s+GROUP BY assignee_id`

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	pool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, pool.ExpectationsWereMet())
		pool.Close()
	})
	return pool
}

func TestTableFor(t *testing.T) {
	for _, category := range domain.TicketCategories {
		table, err := TableFor(category)
		require.NoError(t, err, category)
		assert.NotEmpty(t, table)
	}

	_, err := TableFor(domain.TicketCategory("problem; DROP TABLE agents"))
	assert.Error(t, err)
}

func TestTableForDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, category := range domain.TicketCategories {
		table, _ := TableFor(category)
		assert.False(t, seen[table], "table %s reused", table)
		seen[table] = true
	}
}

func TestCountOpenByAssignee(t *testing.T) {
	for _, category := range domain.TicketCategories {
		t.Run(string(category), func(t *testing.T) {
			pool := newMockPool(t)
			table, err := TableFor(category)
			require.NoError(t, err)

			pool.ExpectQuery(fmt.Sprintf(countOpenSQL, table)).
				WithArgs("t-1", category.ClosedStatus()).
				WillReturnRows(pgxmock.NewRows([]string{"assignee_id", "count"}).
					AddRow("a1", 3).
					AddRow("a2", 1))

			counts, err := NewTicketRepository(pool).CountOpenByAssignee(context.Background(), "t-1", category)

			require.NoError(t, err)
			assert.Equal(t, map[string]int{"a1": 3, "a2": 1}, counts)
		})
	}
}

func TestCountOpenByAssigneeNoRows(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery(fmt.Sprintf(countOpenSQL, "incidents")).
		WithArgs("t-1", domain.IncidentStatusClosed).
		WillReturnRows(pgxmock.NewRows([]string{"assignee_id", "count"}))

	counts, err := NewTicketRepository(pool).CountOpenByAssignee(context.Background(), "t-1", domain.CategoryIncident)

	require.NoError(t, err)
	assert.NotNil(t, counts)
	assert.Empty(t, counts)
}

func TestCountOpenByAssigneeErrors(t *testing.T) {
	boom := errors.New("connection reset")

	t.Run("query", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectQuery(fmt.Sprintf(countOpenSQL, "change_requests")).
			WithArgs("t-1", domain.ChangeStatusClosed).
			WillReturnError(boom)

		_, err := NewTicketRepository(pool).CountOpenByAssignee(context.Background(), "t-1", domain.CategoryChangeRequest)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("rows", func(t *testing.T) {
		pool := newMockPool(t)
		pool.ExpectQuery(fmt.Sprintf(countOpenSQL, "service_requests")).
			WithArgs("t-1", domain.ServiceRequestStatusClosed).
			WillReturnRows(pgxmock.NewRows([]string{"assignee_id", "count"}).
				AddRow("a1", 2).
				AddRow("a2", 5).
				RowError(1, boom))

		_, err := NewTicketRepository(pool).CountOpenByAssignee(context.Background(), "t-1", domain.CategoryServiceRequest)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unknown category", func(t *testing.T) {
		pool := newMockPool(t)
		_, err := NewTicketRepository(pool).CountOpenByAssignee(context.Background(), "t-1", domain.TicketCategory("problem"))
		assert.Error(t, err)
	})
}
