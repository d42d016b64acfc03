package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/pkg/database"
)

func TestLineItemRepository_ListOpenByProduct_OpenLinesOnly(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewLineItemRepository(mock)

	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM line_items li\s+JOIN products p .+\s+JOIN orders o .+ ORDER BY li.created_at`).
		WithArgs("prod-1", domain.OrderStatusCreated).
		WillReturnRows(pgxmock.NewRows(lineItemCols).
			AddRow("li-1", "order-1", "prod-1", "seller-1", "Raw honey 500g",
				3, int64(3000), false, nil, ts, ts).
			AddRow("li-2", "order-2", "prod-1", "seller-1", "Raw honey 500g",
				1, int64(1000), false, nil, ts, ts),
		)

	items, err := repo.ListOpenByProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "order-2", items[1].OrderID)
	assert.Empty(t, items[0].ChangeNote)
}

func TestLineItemRepository_UpdateLine(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewLineItemRepository(mock)

	li := &domain.LineItem{
		ID:           "li-1",
		Quantity:     2,
		LineSubtotal: 2400,
		ChangeNote:   "Price Increased",
	}

	mock.ExpectExec(`UPDATE line_items\s+SET quantity = \$1, line_subtotal = \$2, change_note = NULLIF\(\$3, ''\)`).
		WithArgs(li.Quantity, li.LineSubtotal, li.ChangeNote, pgxmock.AnyArg(), li.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateLine(context.Background(), li))
}

func TestLineItemRepository_ClearChangeNotes(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewLineItemRepository(mock)

	mock.ExpectExec(`UPDATE line_items\s+SET change_note = NULL`).
		WithArgs("order-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))

	require.NoError(t, repo.ClearChangeNotes(context.Background(), "order-1"))
}

func TestLineItemRepository_ClearRatedForConsumerProduct(t *testing.T) {
	mock := database.NewMockPool(t)
	repo := NewLineItemRepository(mock)

	mock.ExpectExec(`UPDATE line_items li\s+SET rated = FALSE`).
		WithArgs("consumer-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ClearRatedForConsumerProduct(context.Background(), "consumer-1", "prod-1"))
}
