package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/lojapijamas/storefront/internal/models"
	pkglogger "github.com/lojapijamas/storefront/pkg/logger"
)

// UserRepository defines the interface for user administration
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

// UserService handles user administration
type UserService struct {
	repo        UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(repo UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// validID rejects ids that cannot name a stored row, so they read as not found.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return users, nil
}

// GetUserByEmail returns the account for email. Only its owner or an admin may read it.
func (s *UserService) GetUserByEmail(ctx context.Context, requester *models.TokenClaims, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if requester == nil {
		return nil, models.ErrUnauthorized
	}
	if !requester.IsAdmin() && !strings.EqualFold(requester.Email, email) {
		return nil, models.ErrForbidden
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// UpdateUser applies an admin edit. Role must be user or admin.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id string, upd models.UserUpdate) (*models.User, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, models.NewValidationError("Nome inválido")
		}
		upd.Name = &name
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email == "" {
			return nil, models.NewValidationError("E-mail inválido")
		}
		upd.Email = &email
	}
	if upd.Role != nil && *upd.Role != models.RoleUser && *upd.Role != models.RoleAdmin {
		return nil, models.NewValidationError("Role inválida")
	}

	user, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return nil, models.ErrNotFound
		case errors.Is(err, models.ErrConflict):
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to update user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	metadata := map[string]string{"target_user_id": id}
	if upd.Role != nil {
		metadata["role"] = *upd.Role
	}
	s.auditLogger.LogAccountAction("user_updated", actorID, "", metadata)
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if !validID(id) {
		return models.ErrNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_deleted", actorID, "", map[string]string{"target_user_id": id})
	return nil
}
