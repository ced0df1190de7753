package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lojapijamas/storefront/internal/models"
	pkgauth "github.com/lojapijamas/storefront/pkg/auth"
	pkglogger "github.com/lojapijamas/storefront/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(testLogger())
}

// MockUserRepository implements the user repository interfaces for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenHashFunc func(ctx context.Context, tokenHash string) (*models.User, error)
	ListFunc                func(ctx context.Context) ([]*models.User, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateFunc              func(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	DeleteFunc              func(ctx context.Context, id string) error
	SetResetTokenFunc       func(ctx context.Context, id, tokenHash string, expiresAt time.Time) error
	UpdatePasswordFunc      func(ctx context.Context, id, passwordHash string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*models.User, error) {
	if m.GetByResetTokenHashFunc != nil {
		return m.GetByResetTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Update(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, upd)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expiresAt time.Time) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, tokenHash, expiresAt)
	}
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

// MockEmailVerificationRepository implements EmailVerificationRepository for testing
type MockEmailVerificationRepository struct {
	ReplaceFunc        func(ctx context.Context, userID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error)
	GetByTokenHashFunc func(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error)
	ConsumeFunc        func(ctx context.Context, tokenID, userID string) error
	CleanupExpiredFunc func(ctx context.Context) (int64, error)
}

func (m *MockEmailVerificationRepository) Replace(ctx context.Context, userID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, userID, tokenHash, email, expiresAt)
	}
	return &models.EmailVerificationToken{ID: "token-1", UserID: userID, TokenHash: tokenHash, Email: email, ExpiresAt: expiresAt}, nil
}

func (m *MockEmailVerificationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockEmailVerificationRepository) Consume(ctx context.Context, tokenID, userID string) error {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenID, userID)
	}
	return nil
}

func (m *MockEmailVerificationRepository) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

type sentMail struct {
	Kind    string
	To      []string
	Name    string
	Link    string
	Subject string
	Body    string
}

// MockMailer records every message instead of sending it
type MockMailer struct {
	mu   sync.Mutex
	Sent []sentMail
	Err  error
}

func (m *MockMailer) record(mail sentMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, mail)
	return nil
}

func (m *MockMailer) SendVerification(_ context.Context, to, name, link string) error {
	return m.record(sentMail{Kind: "verification", To: []string{to}, Name: name, Link: link})
}

func (m *MockMailer) SendPasswordReset(_ context.Context, to, name, link string) error {
	return m.record(sentMail{Kind: "password_reset", To: []string{to}, Name: name, Link: link})
}

func (m *MockMailer) SendPasswordChanged(_ context.Context, to, name string) error {
	return m.record(sentMail{Kind: "password_changed", To: []string{to}, Name: name})
}

func (m *MockMailer) SendNewsletter(_ context.Context, recipients []string, subject, htmlBody string) error {
	return m.record(sentMail{Kind: "newsletter", To: recipients, Subject: subject, Body: htmlBody})
}

func (m *MockMailer) SendContact(_ context.Context, msg ContactMessage) error {
	return m.record(sentMail{Kind: "contact", To: []string{msg.Email}, Name: msg.Name, Subject: msg.Subject, Body: msg.Message})
}

func (m *MockMailer) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.Sent))
	for _, s := range m.Sent {
		out = append(out, s.Kind)
	}
	return out
}

// NewTestUser creates a verified user with role user
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:            id,
		Email:         email,
		Name:          name,
		Role:          models.RoleUser,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewTestUserWithPassword creates a verified user whose hash matches password
func NewTestUserWithPassword(id, email, name, password string) *models.User {
	user := NewTestUser(id, email, name)
	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	user.PasswordHash = hash
	return user
}

// NewTestUserUnverified creates a user that has not confirmed its email
func NewTestUserUnverified(id, email, name string) *models.User {
	user := NewTestUser(id, email, name)
	user.EmailVerified = false
	return user
}
