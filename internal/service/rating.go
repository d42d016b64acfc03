package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/internal/event"
	"github.com/fieldmarket/marketplace/internal/repository/postgres"
	"github.com/fieldmarket/marketplace/internal/txn"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// RatingService manages post-purchase ratings. Every mutation updates the
// rating row, the line's rated flag, and both the product's and the seller's
// aggregates in one transaction, so the incremental aggregates always equal
// what a full recount would produce.
type RatingService struct {
	store  *postgres.Store
	txn    *txn.Coordinator
	events event.Publisher
	logger *slog.Logger
}

// NewRatingService creates the rating service.
func NewRatingService(store *postgres.Store, coordinator *txn.Coordinator, events event.Publisher, logger *slog.Logger) *RatingService {
	return &RatingService{
		store:  store,
		txn:    coordinator,
		events: events,
		logger: logger,
	}
}

// AddRatingInput holds the parameters for a new rating.
type AddRatingInput struct {
	LineItemID string
	ProductID  string
	Score      int
	Comment    string
}

// Add rates a product against a line item from one of the actor's completed
// orders. The line must be unrated and the consumer must not have rated the
// product through any other order.
func (s *RatingService) Add(ctx context.Context, actor domain.Actor, input AddRatingInput) (*domain.Rating, error) {
	if actor.Kind != domain.ActorConsumer {
		return nil, apperrors.Unauthorized("only consumers rate products")
	}
	if !domain.ValidScore(input.Score) {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("score must be between %d and %d", domain.MinScore, domain.MaxScore))
	}

	var rating *domain.Rating
	err := s.txn.Default(ctx, func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)

		line, err := store.LineItems.GetByID(ctx, input.LineItemID)
		if err != nil {
			return err
		}
		if line.ProductID != input.ProductID {
			return apperrors.InvalidInput("line item is for a different product")
		}

		order, err := store.Orders.GetByID(ctx, line.OrderID)
		if err != nil {
			return err
		}
		if order.ConsumerID != actor.ID {
			return apperrors.Unauthorized("line item belongs to another consumer")
		}
		if order.Status != domain.OrderStatusCompleted {
			return apperrors.InvalidState("only completed orders can be rated")
		}
		if line.Rated {
			return apperrors.InvalidState("line item already rated")
		}

		exists, err := store.Ratings.ExistsForConsumerProduct(ctx, actor.ID, input.ProductID)
		if err != nil {
			return err
		}
		if exists {
			return apperrors.AlreadyExists("product already rated by this consumer")
		}

		now := time.Now().UTC()
		rating = &domain.Rating{
			ID:         uuid.New().String(),
			ConsumerID: actor.ID,
			ProductID:  input.ProductID,
			LineItemID: input.LineItemID,
			Score:      input.Score,
			Comment:    input.Comment,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := store.Ratings.Create(ctx, rating); err != nil {
			return err
		}
		if err := store.LineItems.SetRated(ctx, line.ID, true); err != nil {
			return err
		}

		if err := store.Products.ApplyRatingDelta(ctx, input.ProductID, float64(input.Score), 1); err != nil {
			return err
		}
		return store.Sellers.ApplyRatingDelta(ctx, line.SellerID, float64(input.Score), 1)
	})
	if err != nil {
		return nil, err
	}

	s.publishChanged(ctx, "created", rating)

	s.logger.InfoContext(ctx, "rating created",
		slog.String("rating_id", rating.ID),
		slog.String("product_id", rating.ProductID),
		slog.Int("score", rating.Score),
	)

	return rating, nil
}

// Update changes the score or comment of the actor's own rating. The count
// stays put; only the score difference flows into the aggregates.
func (s *RatingService) Update(ctx context.Context, actor domain.Actor, ratingID string, score int, comment string) (*domain.Rating, error) {
	if actor.Kind != domain.ActorConsumer {
		return nil, apperrors.Unauthorized("only consumers rate products")
	}
	if !domain.ValidScore(score) {
		return nil, apperrors.InvalidInput(
			fmt.Sprintf("score must be between %d and %d", domain.MinScore, domain.MaxScore))
	}

	var rating *domain.Rating
	err := s.txn.Default(ctx, func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)

		var err error
		rating, err = store.Ratings.GetByID(ctx, ratingID)
		if err != nil {
			return err
		}
		if rating.ConsumerID != actor.ID {
			return apperrors.Unauthorized("rating belongs to another consumer")
		}

		scoreDelta := float64(score - rating.Score)
		rating.Score = score
		rating.Comment = comment
		if err := store.Ratings.Update(ctx, rating); err != nil {
			return err
		}

		if scoreDelta == 0 {
			return nil
		}

		product, err := store.Products.GetByID(ctx, rating.ProductID)
		if err != nil {
			return err
		}
		if err := store.Products.ApplyRatingDelta(ctx, rating.ProductID, scoreDelta, 0); err != nil {
			return err
		}
		return store.Sellers.ApplyRatingDelta(ctx, product.SellerID, scoreDelta, 0)
	})
	if err != nil {
		return nil, err
	}

	s.publishChanged(ctx, "updated", rating)

	s.logger.InfoContext(ctx, "rating updated",
		slog.String("rating_id", rating.ID),
		slog.Int("score", rating.Score),
	)

	return rating, nil
}

// Delete retracts the actor's rating, backs its score out of both aggregates,
// and reopens rating for every line the consumer ever bought of the product.
func (s *RatingService) Delete(ctx context.Context, actor domain.Actor, ratingID string) error {
	if actor.Kind != domain.ActorConsumer {
		return apperrors.Unauthorized("only consumers rate products")
	}

	var rating *domain.Rating
	err := s.txn.Default(ctx, func(tx pgx.Tx) error {
		store := postgres.NewStore(tx)

		var err error
		rating, err = store.Ratings.GetByID(ctx, ratingID)
		if err != nil {
			return err
		}
		if rating.ConsumerID != actor.ID {
			return apperrors.Unauthorized("rating belongs to another consumer")
		}

		product, err := store.Products.GetByID(ctx, rating.ProductID)
		if err != nil {
			return err
		}

		if err := store.Ratings.Delete(ctx, ratingID); err != nil {
			return err
		}
		if err := store.LineItems.ClearRatedForConsumerProduct(ctx, actor.ID, rating.ProductID); err != nil {
			return err
		}

		if err := store.Products.ApplyRatingDelta(ctx, rating.ProductID, -float64(rating.Score), -1); err != nil {
			return err
		}
		return store.Sellers.ApplyRatingDelta(ctx, product.SellerID, -float64(rating.Score), -1)
	})
	if err != nil {
		return err
	}

	s.publishChanged(ctx, "deleted", rating)

	s.logger.InfoContext(ctx, "rating deleted",
		slog.String("rating_id", ratingID),
		slog.String("product_id", rating.ProductID),
	)

	return nil
}

// Get retrieves a rating by id.
func (s *RatingService) Get(ctx context.Context, ratingID string) (*domain.Rating, error) {
	return s.store.Ratings.GetByID(ctx, ratingID)
}

// ListByProduct returns a product's ratings, newest first.
func (s *RatingService) ListByProduct(ctx context.Context, productID string, page, perPage int) ([]domain.Rating, int, error) {
	page, perPage = clampPage(page, perPage)
	return s.store.Ratings.ListByProduct(ctx, productID, page, perPage)
}

// ListByConsumer returns the actor's own ratings, newest first.
func (s *RatingService) ListByConsumer(ctx context.Context, actor domain.Actor, page, perPage int) ([]domain.Rating, int, error) {
	if actor.Kind != domain.ActorConsumer {
		return nil, 0, apperrors.Unauthorized("only consumers have ratings")
	}
	page, perPage = clampPage(page, perPage)
	return s.store.Ratings.ListByConsumer(ctx, actor.ID, page, perPage)
}

// CanRate reports whether the actor may rate through the given line item:
// the owning order is completed, the line is unrated, and the consumer has
// not rated the product through any other order.
func (s *RatingService) CanRate(ctx context.Context, actor domain.Actor, lineItemID string) (bool, error) {
	if actor.Kind != domain.ActorConsumer {
		return false, apperrors.Unauthorized("only consumers rate products")
	}

	line, err := s.store.LineItems.GetByID(ctx, lineItemID)
	if err != nil {
		return false, err
	}

	order, err := s.store.Orders.GetByID(ctx, line.OrderID)
	if err != nil {
		return false, err
	}
	if order.ConsumerID != actor.ID {
		return false, apperrors.Unauthorized("line item belongs to another consumer")
	}
	if order.Status != domain.OrderStatusCompleted || line.Rated {
		return false, nil
	}

	exists, err := s.store.Ratings.ExistsForConsumerProduct(ctx, actor.ID, line.ProductID)
	if err != nil {
		return false, err
	}

	return !exists, nil
}

func clampPage(page, perPage int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > 100 {
		perPage = 100
	}
	return page, perPage
}

func (s *RatingService) publishChanged(ctx context.Context, action string, rating *domain.Rating) {
	if err := s.events.RatingChanged(ctx, action, rating); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish rating.changed event",
			slog.String("rating_id", rating.ID),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
	}
}
