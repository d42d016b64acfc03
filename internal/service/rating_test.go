package service

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldmarket/marketplace/internal/domain"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

func newRatingService(t *testing.T) (*testDeps, *RatingService) {
	deps := newTestDeps(t)
	return deps, NewRatingService(deps.store, deps.txn, deps.events, testLogger())
}

func expectCompletedLine(deps *testDeps, rated bool) {
	deps.mock.ExpectQuery(`WHERE li.id = \$1`).
		WithArgs("li-1").
		WillReturnRows(lineItemRows(lineRow{
			id: "li-1", orderID: "order-1", productID: "prod-1", sellerID: "seller-1",
			quantity: 1, subtotal: 1000, rated: rated,
		}))
	deps.mock.ExpectQuery(`FROM orders WHERE id = \$1`).
		WithArgs("order-1").
		WillReturnRows(orderRow("order-1", "consumer-1", domain.OrderStatusCompleted, 1000))
	deps.mock.ExpectQuery(`WHERE li.order_id = \$1`).
		WithArgs("order-1").
		WillReturnRows(lineItemRows(lineRow{
			id: "li-1", orderID: "order-1", productID: "prod-1", sellerID: "seller-1",
			quantity: 1, subtotal: 1000, rated: rated,
		}))
}

func TestRatingService_Add(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	expectCompletedLine(deps, false)
	deps.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("consumer-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	deps.mock.ExpectExec(`INSERT INTO ratings`).
		WithArgs(pgxmock.AnyArg(), "consumer-1", "prod-1", "li-1", 4, "great honey", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	deps.mock.ExpectExec(`UPDATE line_items SET rated = \$1`).
		WithArgs(true, "li-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectExec(`UPDATE products SET total_rating = total_rating \+ \$1`).
		WithArgs(float64(4), 1, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectExec(`UPDATE sellers SET total_rating = total_rating \+ \$1`).
		WithArgs(float64(4), 1, "seller-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectCommit()

	rating, err := svc.Add(context.Background(), domain.ConsumerActor("consumer-1"), AddRatingInput{
		LineItemID: "li-1",
		ProductID:  "prod-1",
		Score:      4,
		Comment:    "great honey",
	})
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Score)
	assert.Equal(t, []string{"created"}, deps.events.ratingActions)
}

func TestRatingService_Add_ScoreOutOfRange(t *testing.T) {
	_, svc := newRatingService(t)

	_, err := svc.Add(context.Background(), domain.ConsumerActor("consumer-1"), AddRatingInput{
		LineItemID: "li-1",
		ProductID:  "prod-1",
		Score:      6,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestRatingService_Add_OrderNotCompleted(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	deps.mock.ExpectQuery(`WHERE li.id = \$1`).
		WithArgs("li-1").
		WillReturnRows(lineItemRows(lineRow{
			id: "li-1", orderID: "order-1", productID: "prod-1", sellerID: "seller-1",
			quantity: 1, subtotal: 1000,
		}))
	deps.mock.ExpectQuery(`FROM orders WHERE id = \$1`).
		WithArgs("order-1").
		WillReturnRows(orderRow("order-1", "consumer-1", domain.OrderStatusDelivered, 1000))
	deps.mock.ExpectQuery(`WHERE li.order_id = \$1`).
		WithArgs("order-1").
		WillReturnRows(lineItemRows())
	deps.mock.ExpectRollback()

	_, err := svc.Add(context.Background(), domain.ConsumerActor("consumer-1"), AddRatingInput{
		LineItemID: "li-1",
		ProductID:  "prod-1",
		Score:      5,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRatingService_Add_AlreadyRatedLine(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	expectCompletedLine(deps, true)
	deps.mock.ExpectRollback()

	_, err := svc.Add(context.Background(), domain.ConsumerActor("consumer-1"), AddRatingInput{
		LineItemID: "li-1",
		ProductID:  "prod-1",
		Score:      5,
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRatingService_Add_ProductRatedThroughAnotherOrder(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	expectCompletedLine(deps, false)
	deps.mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("consumer-1", "prod-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	deps.mock.ExpectRollback()

	_, err := svc.Add(context.Background(), domain.ConsumerActor("consumer-1"), AddRatingInput{
		LineItemID: "li-1",
		ProductID:  "prod-1",
		Score:      5,
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Empty(t, deps.events.ratingActions)
}

func TestRatingService_Update_AppliesScoreDelta(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	deps.mock.ExpectQuery(`FROM ratings WHERE id = \$1`).
		WithArgs("rating-1").
		WillReturnRows(ratingRow("rating-1", "consumer-1", "prod-1", "li-1", 2))
	deps.mock.ExpectExec(`UPDATE ratings SET score = \$1`).
		WithArgs(4, "even better", pgxmock.AnyArg(), "rating-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("prod-1").
		WillReturnRows(productRow("prod-1", "seller-1", 1000, 5))
	deps.mock.ExpectExec(`UPDATE products SET total_rating = total_rating \+ \$1`).
		WithArgs(float64(2), 0, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectExec(`UPDATE sellers SET total_rating = total_rating \+ \$1`).
		WithArgs(float64(2), 0, "seller-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectCommit()

	rating, err := svc.Update(context.Background(), domain.ConsumerActor("consumer-1"), "rating-1", 4, "even better")
	require.NoError(t, err)
	assert.Equal(t, 4, rating.Score)
	assert.Equal(t, []string{"updated"}, deps.events.ratingActions)
}

func TestRatingService_Update_OtherConsumerForbidden(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	deps.mock.ExpectQuery(`FROM ratings WHERE id = \$1`).
		WithArgs("rating-1").
		WillReturnRows(ratingRow("rating-1", "consumer-1", "prod-1", "li-1", 2))
	deps.mock.ExpectRollback()

	_, err := svc.Update(context.Background(), domain.ConsumerActor("consumer-other"), "rating-1", 4, "")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRatingService_Delete_BacksOutAggregatesAndReopensLines(t *testing.T) {
	deps, svc := newRatingService(t)

	deps.mock.ExpectBeginTx(pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	deps.mock.ExpectQuery(`FROM ratings WHERE id = \$1`).
		WithArgs("rating-1").
		WillReturnRows(ratingRow("rating-1", "consumer-1", "prod-1", "li-1", 5))
	deps.mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("prod-1").
		WillReturnRows(productRow("prod-1", "seller-1", 1000, 5))
	deps.mock.ExpectExec(`DELETE FROM ratings WHERE id = \$1`).
		WithArgs("rating-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	deps.mock.ExpectExec(`UPDATE line_items li SET rated = FALSE`).
		WithArgs("consumer-1", "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	deps.mock.ExpectExec(`UPDATE products SET total_rating = total_rating \+ \$1`).
		WithArgs(float64(-5), -1, "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectExec(`UPDATE sellers SET total_rating = total_rating \+ \$1`).
		WithArgs(float64(-5), -1, "seller-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	deps.mock.ExpectCommit()

	err := svc.Delete(context.Background(), domain.ConsumerActor("consumer-1"), "rating-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"deleted"}, deps.events.ratingActions)
}
