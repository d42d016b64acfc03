package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/fieldmarket/marketplace/internal/domain"
	"github.com/fieldmarket/marketplace/pkg/database"
	apperrors "github.com/fieldmarket/marketplace/pkg/errors"
)

// ConsumerRepository implements repository.ConsumerRepository using PostgreSQL.
type ConsumerRepository struct {
	db database.DBTX
}

// NewConsumerRepository creates a PostgreSQL-backed consumer repository.
func NewConsumerRepository(db database.DBTX) *ConsumerRepository {
	return &ConsumerRepository{db: db}
}

// GetByID retrieves a consumer by id.
func (r *ConsumerRepository) GetByID(ctx context.Context, id string) (*domain.Consumer, error) {
	query := `
		SELECT id, name, email, created_at
		FROM consumers
		WHERE id = $1`

	var c domain.Consumer
	err := r.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("consumer", id)
		}
		return nil, fmt.Errorf("scan consumer: %w", err)
	}

	return &c, nil
}
