package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lojapijamas/storefront/internal/models"
	pkgauth "github.com/lojapijamas/storefront/pkg/auth"
)

// EmailVerificationRepository stores activation token hashes.
type EmailVerificationRepository interface {
	Replace(ctx context.Context, userID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error)
	Consume(ctx context.Context, tokenID, userID string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// EmailVerificationService issues and redeems account activation links.
type EmailVerificationService struct {
	repo        EmailVerificationRepository
	mailer      Mailer
	frontendURL string
	tokenExpiry time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewEmailVerificationService(
	repo EmailVerificationRepository,
	mailer Mailer,
	frontendURL string,
	tokenExpiry time.Duration,
	logger *slog.Logger,
) *EmailVerificationService {
	if tokenExpiry <= 0 {
		tokenExpiry = 24 * time.Hour
	}
	return &EmailVerificationService{
		repo:        repo,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		tokenExpiry: tokenExpiry,
		logger:      logger,
		now:         time.Now,
	}
}

// Send replaces any outstanding token of user and emails a new activation link.
func (s *EmailVerificationService) Send(ctx context.Context, user *models.User) error {
	token, hash, err := pkgauth.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("failed to generate verification token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if _, err := s.repo.Replace(ctx, user.ID, hash, user.Email, s.now().Add(s.tokenExpiry)); err != nil {
		s.logger.Error("failed to store verification token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	link := fmt.Sprintf("%s/verificar/%s", s.frontendURL, token)
	if err := s.mailer.SendVerification(ctx, user.Email, user.Name, link); err != nil {
		return fmt.Errorf("send verification: %w", err)
	}

	s.logger.Info("verification email sent", slog.String("user_id", user.ID))
	return nil
}

// Verify redeems an activation token and returns the id of the verified user.
func (s *EmailVerificationService) Verify(ctx context.Context, plainToken string) (string, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return "", models.ErrInvalidToken
	}

	token, err := s.repo.GetByTokenHash(ctx, pkgauth.HashToken(plainToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("verification token not found")
			return "", models.ErrInvalidToken
		}
		s.logger.Error("failed to retrieve verification token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if token.UsedAt != nil {
		return "", models.ErrAlreadyVerified
	}
	if !token.Usable(s.now()) {
		s.logger.Info("verification token expired", slog.String("token_id", token.ID))
		return "", models.ErrInvalidToken
	}

	if err := s.repo.Consume(ctx, token.ID, token.UserID); err != nil {
		if errors.Is(err, models.ErrInvalidToken) {
			return "", models.ErrInvalidToken
		}
		s.logger.Error("failed to consume verification token",
			slog.String("token_id", token.ID),
			slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("user_id", token.UserID))
	return token.UserID, nil
}

// CleanupExpired removes used and expired tokens.
func (s *EmailVerificationService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.repo.CleanupExpired(ctx)
}
