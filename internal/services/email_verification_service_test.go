package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojapijamas/storefront/internal/models"
	pkgauth "github.com/lojapijamas/storefront/pkg/auth"
)

func TestEmailVerificationService_Send(t *testing.T) {
	var storedHash, storedEmail string
	var storedExpiry time.Time
	repo := &MockEmailVerificationRepository{
		ReplaceFunc: func(ctx context.Context, userID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error) {
			assert.Equal(t, "user-1", userID)
			storedHash, storedEmail, storedExpiry = tokenHash, email, expiresAt
			return &models.EmailVerificationToken{ID: "t1"}, nil
		},
	}
	mailer := &MockMailer{}
	svc := NewEmailVerificationService(repo, mailer, "https://loja.example.com", 24*time.Hour, testLogger())

	err := svc.Send(context.Background(), NewTestUserUnverified("user-1", "ana@example.com", "Ana"))

	require.NoError(t, err)
	require.Len(t, mailer.Sent, 1)
	token := strings.TrimPrefix(mailer.Sent[0].Link, "https://loja.example.com/verificar/")
	assert.Equal(t, pkgauth.HashToken(token), storedHash)
	assert.Equal(t, "ana@example.com", storedEmail)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), storedExpiry, 5*time.Second)
}

func TestEmailVerificationService_Send_Failures(t *testing.T) {
	repo := &MockEmailVerificationRepository{
		ReplaceFunc: func(ctx context.Context, userID, tokenHash, email string, expiresAt time.Time) (*models.EmailVerificationToken, error) {
			return nil, errors.New("db down")
		},
	}
	mailer := &MockMailer{}
	svc := NewEmailVerificationService(repo, mailer, "https://loja.example.com", 0, testLogger())

	err := svc.Send(context.Background(), NewTestUserUnverified("user-1", "ana@example.com", "Ana"))
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Empty(t, mailer.Sent, "no email without a stored token")

	failingMailer := &MockMailer{Err: models.ErrServiceUnavailable}
	svc = NewEmailVerificationService(&MockEmailVerificationRepository{}, failingMailer, "https://loja.example.com", 0, testLogger())
	err = svc.Send(context.Background(), NewTestUserUnverified("user-1", "ana@example.com", "Ana"))
	assert.ErrorIs(t, err, models.ErrServiceUnavailable)
}

func TestEmailVerificationService_Verify(t *testing.T) {
	const plain = "plain-token"
	now := time.Now()

	tests := []struct {
		name    string
		token   *models.EmailVerificationToken
		lookErr error
		consume error
		wantErr error
	}{
		{
			name:  "valid token",
			token: &models.EmailVerificationToken{ID: "t1", UserID: "user-1", ExpiresAt: now.Add(time.Hour)},
		},
		{
			name:    "unknown token",
			lookErr: models.ErrNotFound,
			wantErr: models.ErrInvalidToken,
		},
		{
			name:    "expired token",
			token:   &models.EmailVerificationToken{ID: "t1", UserID: "user-1", ExpiresAt: now.Add(-time.Minute)},
			wantErr: models.ErrInvalidToken,
		},
		{
			name:    "already used",
			token:   &models.EmailVerificationToken{ID: "t1", UserID: "user-1", ExpiresAt: now.Add(time.Hour), UsedAt: &now},
			wantErr: models.ErrAlreadyVerified,
		},
		{
			name:    "lost race on consume",
			token:   &models.EmailVerificationToken{ID: "t1", UserID: "user-1", ExpiresAt: now.Add(time.Hour)},
			consume: models.ErrInvalidToken,
			wantErr: models.ErrInvalidToken,
		},
		{
			name:    "storage failure",
			lookErr: errors.New("db down"),
			wantErr: models.ErrInternalServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockEmailVerificationRepository{
				GetByTokenHashFunc: func(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error) {
					assert.Equal(t, pkgauth.HashToken(plain), tokenHash)
					if tt.lookErr != nil {
						return nil, tt.lookErr
					}
					return tt.token, nil
				},
				ConsumeFunc: func(ctx context.Context, tokenID, userID string) error {
					return tt.consume
				},
			}
			svc := NewEmailVerificationService(repo, &MockMailer{}, "", 0, testLogger())

			userID, err := svc.Verify(context.Background(), plain)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, userID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", userID)
		})
	}
}

func TestEmailVerificationService_Verify_EmptyToken(t *testing.T) {
	svc := NewEmailVerificationService(&MockEmailVerificationRepository{}, &MockMailer{}, "", 0, testLogger())

	_, err := svc.Verify(context.Background(), "   ")

	assert.ErrorIs(t, err, models.ErrInvalidToken)
}
