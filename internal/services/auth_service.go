package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lojapijamas/storefront/internal/auth"
	"github.com/lojapijamas/storefront/internal/metrics"
	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/throttle"
	pkgauth "github.com/lojapijamas/storefront/pkg/auth"
	pkglogger "github.com/lojapijamas/storefront/pkg/logger"
)

const adminEnvName = "Administrador"

// LockedError is returned by Login while the (client, account) pair is locked out.
type LockedError struct {
	RetryAfter int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many login attempts, retry in %ds", e.RetryAfter)
}

func (e *LockedError) Unwrap() error {
	return models.ErrTooManyRequests
}

// AuthUserRepository is the user storage needed by AuthService.
type AuthUserRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type AuthConfig struct {
	AdminEmail    string
	AdminPassword string
	FrontendURL   string
	NameMaxLen    int
	ResetExpiry   time.Duration
}

// AuthService handles signup, login and password recovery.
type AuthService struct {
	repo         AuthUserRepository
	verification *EmailVerificationService
	mailer       Mailer
	tm           *auth.TokenManager
	throttle     *throttle.Throttle
	limiter      *throttle.RequestLimiter
	timing       *auth.TimingDelay
	config       AuthConfig
	logger       *slog.Logger
	auditLogger  *pkglogger.AuditLogger
	now          func() time.Time
}

func NewAuthService(
	repo AuthUserRepository,
	verification *EmailVerificationService,
	mailer Mailer,
	tm *auth.TokenManager,
	loginThrottle *throttle.Throttle,
	limiter *throttle.RequestLimiter,
	timing *auth.TimingDelay,
	config AuthConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	if config.NameMaxLen <= 0 {
		config.NameMaxLen = 60
	}
	if config.ResetExpiry <= 0 {
		config.ResetExpiry = 15 * time.Minute
	}
	config.AdminEmail = strings.ToLower(strings.TrimSpace(config.AdminEmail))
	config.FrontendURL = strings.TrimRight(config.FrontendURL, "/")

	return &AuthService{
		repo:         repo,
		verification: verification,
		mailer:       mailer,
		tm:           tm,
		throttle:     loginThrottle,
		limiter:      limiter,
		timing:       timing,
		config:       config,
		logger:       logger,
		auditLogger:  auditLogger,
		now:          time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// RegisterResult tells whether a new account was created or the activation
// link of a pending account was sent again.
type RegisterResult struct {
	Resent bool
}

// Register creates an unverified account and emails its activation link.
// Registering an address that is still pending resends the link instead.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if n := len([]rune(name)); n < 2 || n > s.config.NameMaxLen {
		return nil, models.NewValidationError(fmt.Sprintf("Nome deve ter entre 2 e %d caracteres.", s.config.NameMaxLen))
	}
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError(weakPasswordMessage)
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil && existing.EmailVerified:
		s.logger.Info("registration rejected: account already active")
		return nil, models.ErrConflict
	case err == nil:
		if err := s.verification.Send(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("activation link resent on registration", slog.String("user_id", existing.ID))
		return &RegisterResult{Resent: true}, nil
	case !errors.Is(err, models.ErrNotFound):
		s.logger.Error("failed to check existing user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("user_registered", user.ID, "", nil)

	if err := s.verification.Send(ctx, user); err != nil {
		return nil, err
	}
	return &RegisterResult{}, nil
}

type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      auth.SessionUser
}

// Login checks credentials under the login throttle. Every failure, whatever
// its cause, counts against the (client, account) pair.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := s.now()
	email := strings.ToLower(strings.TrimSpace(in.Email))
	key := throttle.NewKey(in.ClientIP, email)

	if decision := s.throttle.Check(ctx, key); !decision.Allowed {
		metrics.LoginAttemptsTotal.WithLabelValues("locked").Inc()
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			IPAddress:     in.ClientIP,
			FailureReason: "locked",
		})
		return nil, &LockedError{RetryAfter: decision.RetryAfter}
	}

	if s.isAdminEnv(email, in.Password) {
		return s.completeLogin(ctx, key, in.ClientIP, auth.SessionUser{
			ID:    models.AdminEnvUserID,
			Email: s.config.AdminEmail,
			Name:  adminEnvName,
			Role:  models.RoleAdmin,
		})
	}

	fail := func(reason, userID string, err error) (*LoginResult, error) {
		s.throttle.RecordFailure(ctx, key)
		metrics.LoginAttemptsTotal.WithLabelValues(reason).Inc()
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        userID,
			IPAddress:     in.ClientIP,
			FailureReason: reason,
		})
		s.timing.WaitFrom(ctx, start)
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fail("invalid_credentials", "", models.ErrUnauthorized)
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.EmailVerified {
		return fail("email_not_verified", user.ID, models.ErrEmailNotVerified)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		return fail("invalid_credentials", user.ID, models.ErrUnauthorized)
	}

	return s.completeLogin(ctx, key, in.ClientIP, auth.SessionUser{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	})
}

func (s *AuthService) isAdminEnv(email, password string) bool {
	if s.config.AdminEmail == "" || s.config.AdminPassword == "" {
		return false
	}
	emailMatch := subtle.ConstantTimeCompare([]byte(email), []byte(s.config.AdminEmail))
	passwordMatch := subtle.ConstantTimeCompare([]byte(password), []byte(s.config.AdminPassword))
	return emailMatch&passwordMatch == 1
}

func (s *AuthService) completeLogin(ctx context.Context, key throttle.Key, clientIP string, user auth.SessionUser) (*LoginResult, error) {
	token, expiresAt, err := s.tm.GenerateSessionToken(user)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.throttle.Clear(ctx, key)
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: clientIP,
		Success:   true,
	})

	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// Me returns the identity carried by a session token, or nil when the token
// is absent or not valid.
func (s *AuthService) Me(token string) *auth.SessionUser {
	if token == "" {
		return nil
	}
	claims, err := s.tm.ValidateToken(token)
	if err != nil {
		return nil
	}
	user := auth.SessionUserFromClaims(claims)
	return &user
}

// allowEmailRequest applies the per (client, email) limit on mail-sending endpoints.
func (s *AuthService) allowEmailRequest(ctx context.Context, clientIP, email string) error {
	if s.limiter == nil || email == "" {
		return nil
	}
	if !s.limiter.Allow(ctx, throttle.NewKey(clientIP, email)) {
		return models.ErrTooManyRequests
	}
	return nil
}

// ResendVerification sends a fresh activation link to a pending account.
func (s *AuthService) ResendVerification(ctx context.Context, clientIP, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.allowEmailRequest(ctx, clientIP, email); err != nil {
		return err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if user.EmailVerified {
		return models.ErrAlreadyVerified
	}

	return s.verification.Send(ctx, user)
}

// ForgotPassword stores a reset token hash and emails the reset link.
func (s *AuthService) ForgotPassword(ctx context.Context, clientIP, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := s.allowEmailRequest(ctx, clientIP, email); err != nil {
		return err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}

	token, hash, err := pkgauth.GenerateOneTimeToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetResetToken(ctx, user.ID, hash, s.now().Add(s.config.ResetExpiry)); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	link := fmt.Sprintf("%s/trocar-senha/%s", s.config.FrontendURL, token)
	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, clientIP, nil)
	return nil
}

// ResetPassword replaces the password of the account holding an unexpired reset token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return models.NewValidationError(weakPasswordMessage)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return models.ErrInvalidToken
	}

	user, err := s.repo.GetByResetTokenHash(ctx, pkgauth.HashToken(token))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidToken
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.auditLogger.LogPasswordChange(user.ID, "", false)
		s.logger.Error("failed to update password", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	s.auditLogger.LogPasswordChange(user.ID, "", true)

	if err := s.mailer.SendPasswordChanged(ctx, user.Email, user.Name); err != nil {
		s.logger.Warn("password changed notice not sent", slog.String("user_id", user.ID), slog.Any("error", err))
	}
	return nil
}

const weakPasswordMessage = "Senha deve ter pelo menos 8 caracteres, incluindo maiúscula, minúscula, número e símbolo."
