package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lojapijamas/storefront/internal/database"
	"github.com/lojapijamas/storefront/internal/models"
)

type NewsletterRepository struct {
	pool *pgxpool.Pool
}

func NewNewsletterRepository(db *database.DB) *NewsletterRepository {
	return &NewsletterRepository{pool: db.Pool}
}

// Subscribe adds email to the mailing list. A duplicate yields ErrConflict.
func (r *NewsletterRepository) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	query := `
		INSERT INTO newsletter_subscribers (email) VALUES (LOWER($1))
		RETURNING id, email, created_at
	`

	var sub models.NewsletterSubscriber
	if err := r.pool.QueryRow(ctx, query, email).Scan(&sub.ID, &sub.Email, &sub.CreatedAt); err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &sub, nil
}

// ListEmails returns every subscribed address in subscription order
func (r *NewsletterRepository) ListEmails(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT email FROM newsletter_subscribers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	emails := make([]string, 0)
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		emails = append(emails, email)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriber rows: %w", err)
	}

	return emails, nil
}
