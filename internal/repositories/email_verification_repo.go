package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lojapijamas/storefront/internal/database"
	"github.com/lojapijamas/storefront/internal/models"
)

const tokenColumns = `id, user_id, token_hash, email, expires_at, used_at, created_at`

// EmailVerificationRepository handles signup confirmation tokens
type EmailVerificationRepository struct {
	pool *pgxpool.Pool
}

func NewEmailVerificationRepository(db *database.DB) *EmailVerificationRepository {
	return &EmailVerificationRepository{pool: db.Pool}
}

func scanTokenRow(row rowScanner) (*models.EmailVerificationToken, error) {
	var token models.EmailVerificationToken

	err := row.Scan(
		&token.ID, &token.UserID, &token.TokenHash, &token.Email,
		&token.ExpiresAt, &token.UsedAt, &token.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &token, nil
}

// Replace drops any earlier tokens for the user and stores a new one, so only
// the most recently mailed link works.
func (r *EmailVerificationRepository) Replace(ctx context.Context, userID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error) {
	var token *models.EmailVerificationToken

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM email_verification_tokens WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete previous tokens: %w", err)
		}

		query := `
			INSERT INTO email_verification_tokens (user_id, token_hash, email, expires_at)
			VALUES ($1, $2, LOWER($3), $4)
			RETURNING ` + tokenColumns

		var err error
		token, err = scanTokenRow(tx.QueryRow(ctx, query, userID, tokenHash, email, expiresAt))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create email verification token: %w", err)
	}

	return token, nil
}

// GetByTokenHash retrieves a token by its hash
func (r *EmailVerificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error) {
	query := `SELECT ` + tokenColumns + ` FROM email_verification_tokens WHERE token_hash = $1`
	return scanTokenRow(r.pool.QueryRow(ctx, query, tokenHash))
}

// Consume marks the token used and the owning user verified in one
// transaction. It fails with ErrInvalidToken when the token was already used
// or has expired.
func (r *EmailVerificationRepository) Consume(ctx context.Context, tokenID, userID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE email_verification_tokens SET used_at = NOW()
			WHERE id = $1 AND used_at IS NULL AND expires_at > NOW()
		`, tokenID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrInvalidToken
		}

		result, err = tx.Exec(ctx, `UPDATE users SET email_verified = TRUE, updated_at = NOW() WHERE id = $1`, userID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if result.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
}

// CleanupExpired deletes tokens that are used or past their expiry
func (r *EmailVerificationRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM email_verification_tokens
		WHERE expires_at < NOW() OR used_at IS NOT NULL
	`

	result, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired tokens: %w", err)
	}

	return result.RowsAffected(), nil
}
