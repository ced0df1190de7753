package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lojapijamas/storefront/internal/auth"
	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/services"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Me(token string) *auth.SessionUser
	ResendVerification(ctx context.Context, clientIP, email string) error
	ForgotPassword(ctx context.Context, clientIP, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// EmailVerifierInterface consumes account activation tokens
type EmailVerifierInterface interface {
	Verify(ctx context.Context, plainToken string) (string, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  AuthServiceInterface
	verifier EmailVerifierInterface
	cookies  auth.CookieConfig
	ipConfig *pkghttp.IPConfig
	now      func() time.Time
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, verifier EmailVerifierInterface, cookies auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		verifier: verifier,
		cookies:  cookies,
		ipConfig: ipConfig,
		now:      time.Now,
	}
}

// Request DTOs

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

// EmailRequest is the body of resend-verification and forgot-password
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required"`
}

// LoginResponse is returned on a successful login. ExpiresAt is in Unix milliseconds.
type LoginResponse struct {
	User      auth.SessionUser `json:"user"`
	Token     string           `json:"token"`
	ExpiresAt int64            `json:"expiresAt"`
}

// MeResponse carries the session user, or null without a valid session
type MeResponse struct {
	User *auth.SessionUser `json:"user"`
}

// Register handles account sign-up
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			writeBadRequest(w, "Usuário já existe e está ativo.")
			return
		}
		writeServiceError(w, err)
		return
	}

	if result.Resent {
		pkghttp.WriteMessage(w, http.StatusOK, "Conta pendente de verificação. Reenviamos o link de ativação para o seu e-mail.")
		return
	}
	pkghttp.WriteMessage(w, http.StatusCreated, "Usuário cadastrado! Verifique seu e-mail para ativar a conta.")
}

// VerifyEmail handles email verification with a token in the body
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req VerifyEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.verify(w, r, req.Token)
}

// VerifyEmailLink handles the activation link sent by email
// @Router /auth/verify/{token} [get]
func (h *AuthHandler) VerifyEmailLink(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, chi.URLParam(r, "token"))
}

func (h *AuthHandler) verify(w http.ResponseWriter, r *http.Request, token string) {
	if _, err := h.verifier.Verify(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, models.ErrAlreadyVerified):
			writeBadRequest(w, "Conta já verificada.")
		case errors.Is(err, models.ErrInvalidToken):
			writeBadRequest(w, "Link inválido ou expirado.")
		default:
			writeServiceError(w, err)
		}
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Conta ativada com sucesso!")
}

// Login authenticates the user and sets the session cookie
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), services.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		ClientIP: pkghttp.ExtractClientIP(r, h.ipConfig),
	})
	if err != nil {
		var locked *services.LockedError
		switch {
		case errors.As(err, &locked):
			w.Header().Set("Retry-After", strconv.Itoa(locked.RetryAfter))
			pkghttp.WriteTooManyRequests(w, fmt.Sprintf("Muitas tentativas. Tente novamente em %ds.", locked.RetryAfter))
		case errors.Is(err, models.ErrEmailNotVerified):
			pkghttp.WriteForbidden(w, "Verifique seu e-mail antes de entrar.")
		case errors.Is(err, models.ErrUnauthorized):
			pkghttp.WriteUnauthorized(w, "Credenciais inválidas.")
		default:
			writeServiceError(w, err)
		}
		return
	}

	auth.SetSessionCookie(w, result.Token, result.ExpiresAt.Sub(h.now()), h.cookies)
	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		User:      result.User,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt.UnixMilli(),
	})
}

// Logout clears the session cookie
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookies)
	pkghttp.WriteMessage(w, http.StatusOK, "Logout realizado com sucesso.")
}

// ResendVerification emails a fresh activation link
// @Router /auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.ResendVerification(r.Context(), pkghttp.ExtractClientIP(r, h.ipConfig), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTooManyRequests):
			pkghttp.WriteTooManyRequests(w, "Muitas solicitações para este e-mail. Tente mais tarde.")
		case errors.Is(err, models.ErrNotFound):
			writeBadRequest(w, "Usuário não encontrado.")
		case errors.Is(err, models.ErrAlreadyVerified):
			writeBadRequest(w, "Conta já verificada.")
		default:
			writeServiceError(w, err)
		}
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Novo link de verificação enviado para o seu e-mail.")
}

// ForgotPassword emails a password reset link
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.service.ForgotPassword(r.Context(), pkghttp.ExtractClientIP(r, h.ipConfig), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrTooManyRequests):
			pkghttp.WriteTooManyRequests(w, "Muitas solicitações para este e-mail. Tente mais tarde.")
		case errors.Is(err, models.ErrNotFound):
			writeBadRequest(w, "E-mail não encontrado.")
		default:
			writeServiceError(w, err)
		}
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Enviamos um link de recuperação para o seu e-mail.")
}

// ResetPassword sets a new password using a reset token
// @Router /auth/reset-password/{token} [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteMessage(w, http.StatusOK, "Senha redefinida com sucesso!")
}

// Me returns the user behind the session, or {"user": null}
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, MeResponse{User: h.service.Me(auth.ExtractToken(r))})
}
