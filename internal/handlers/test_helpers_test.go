package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/lojapijamas/storefront/internal/auth"
	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/payments"
	"github.com/lojapijamas/storefront/internal/services"
	"github.com/lojapijamas/storefront/internal/shipping"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds user claims to request context for testing authenticated endpoints
func WithAuthContext(req *http.Request, userID, email, role string) *http.Request {
	claims := &models.TokenClaims{UserID: userID, Email: email, Role: role}
	return req.WithContext(auth.WithClaims(req.Context(), claims))
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks the error envelope code and message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError, expectedMessage string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	if expectedMessage != "" {
		assert.Equal(t, expectedMessage, resp.Message)
	}
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc           func(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error)
	LoginFunc              func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	MeFunc                 func(token string) *auth.SessionUser
	ResendVerificationFunc func(ctx context.Context, clientIP, email string) error
	ForgotPasswordFunc     func(ctx context.Context, clientIP, email string) error
	ResetPasswordFunc      func(ctx context.Context, token, newPassword string) error
}

func (m *MockAuthService) Register(ctx context.Context, in services.RegisterInput) (*services.RegisterResult, error) {
	if m.RegisterFunc == nil {
		return &services.RegisterResult{}, nil
	}
	return m.RegisterFunc(ctx, in)
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) Me(token string) *auth.SessionUser {
	if m.MeFunc == nil {
		return nil
	}
	return m.MeFunc(token)
}

func (m *MockAuthService) ResendVerification(ctx context.Context, clientIP, email string) error {
	if m.ResendVerificationFunc == nil {
		return nil
	}
	return m.ResendVerificationFunc(ctx, clientIP, email)
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, clientIP, email string) error {
	if m.ForgotPasswordFunc == nil {
		return nil
	}
	return m.ForgotPasswordFunc(ctx, clientIP, email)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc == nil {
		return nil
	}
	return m.ResetPasswordFunc(ctx, token, newPassword)
}

// MockEmailVerifier for testing
type MockEmailVerifier struct {
	VerifyFunc func(ctx context.Context, plainToken string) (string, error)
}

func (m *MockEmailVerifier) Verify(ctx context.Context, plainToken string) (string, error) {
	if m.VerifyFunc == nil {
		return "", models.ErrInvalidToken
	}
	return m.VerifyFunc(ctx, plainToken)
}

// MockUserService implements UserService for testing
type MockUserService struct {
	ListUsersFunc      func(ctx context.Context) ([]*models.User, error)
	GetUserByEmailFunc func(ctx context.Context, requester *models.TokenClaims, email string) (*models.User, error)
	UpdateUserFunc     func(ctx context.Context, actorID, id string, upd models.UserUpdate) (*models.User, error)
	DeleteUserFunc     func(ctx context.Context, actorID, id string) error
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	if m.ListUsersFunc == nil {
		return []*models.User{}, nil
	}
	return m.ListUsersFunc(ctx)
}

func (m *MockUserService) GetUserByEmail(ctx context.Context, requester *models.TokenClaims, email string) (*models.User, error) {
	if m.GetUserByEmailFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetUserByEmailFunc(ctx, requester, email)
}

func (m *MockUserService) UpdateUser(ctx context.Context, actorID, id string, upd models.UserUpdate) (*models.User, error) {
	if m.UpdateUserFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateUserFunc(ctx, actorID, id, upd)
}

func (m *MockUserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if m.DeleteUserFunc == nil {
		return nil
	}
	return m.DeleteUserFunc(ctx, actorID, id)
}

// MockProductService implements ProductServiceInterface for testing
type MockProductService struct {
	ListProductsFunc  func(ctx context.Context, category string) ([]*models.Product, error)
	GetProductFunc    func(ctx context.Context, id string) (*models.Product, error)
	CreateProductFunc func(ctx context.Context, in services.CreateProductInput) (*models.Product, error)
	DeleteProductFunc func(ctx context.Context, id string) error
	UploadImageFunc   func(upload services.ImageUpload) (string, error)
}

func (m *MockProductService) ListProducts(ctx context.Context, category string) ([]*models.Product, error) {
	if m.ListProductsFunc == nil {
		return []*models.Product{}, nil
	}
	return m.ListProductsFunc(ctx, category)
}

func (m *MockProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if m.GetProductFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetProductFunc(ctx, id)
}

func (m *MockProductService) CreateProduct(ctx context.Context, in services.CreateProductInput) (*models.Product, error) {
	if m.CreateProductFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.CreateProductFunc(ctx, in)
}

func (m *MockProductService) DeleteProduct(ctx context.Context, id string) error {
	if m.DeleteProductFunc == nil {
		return nil
	}
	return m.DeleteProductFunc(ctx, id)
}

func (m *MockProductService) UploadImage(upload services.ImageUpload) (string, error) {
	if m.UploadImageFunc == nil {
		return "/uploads/" + upload.Filename, nil
	}
	return m.UploadImageFunc(upload)
}

// MockOrderService implements OrderServiceInterface for testing
type MockOrderService struct {
	ListOrdersFunc   func(ctx context.Context) ([]*models.Order, error)
	ListMineFunc     func(ctx context.Context, requester *models.TokenClaims) ([]*models.Order, error)
	UpdateStatusFunc func(ctx context.Context, id, status string) (*models.Order, error)
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]*models.Order, error) {
	if m.ListOrdersFunc == nil {
		return []*models.Order{}, nil
	}
	return m.ListOrdersFunc(ctx)
}

func (m *MockOrderService) ListMine(ctx context.Context, requester *models.TokenClaims) ([]*models.Order, error) {
	if m.ListMineFunc == nil {
		return []*models.Order{}, nil
	}
	return m.ListMineFunc(ctx, requester)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id, status string) (*models.Order, error) {
	if m.UpdateStatusFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateStatusFunc(ctx, id, status)
}

// MockCheckout implements CheckoutInterface for testing
type MockCheckout struct {
	CreatePreferenceFunc func(ctx context.Context, cart []payments.CartItem, clientTotal *decimal.Decimal, payerEmail string) (*payments.CheckoutResult, error)
}

func (m *MockCheckout) CreatePreference(ctx context.Context, cart []payments.CartItem, clientTotal *decimal.Decimal, payerEmail string) (*payments.CheckoutResult, error) {
	return m.CreatePreferenceFunc(ctx, cart, clientTotal, payerEmail)
}

// MockReconciler implements ReconcilerInterface for testing
type MockReconciler struct {
	ReconcileFunc func(ctx context.Context, n payments.Notification) (payments.Outcome, error)
}

func (m *MockReconciler) Reconcile(ctx context.Context, n payments.Notification) (payments.Outcome, error) {
	return m.ReconcileFunc(ctx, n)
}

// MockShippingQuoter implements ShippingQuoter for testing
type MockShippingQuoter struct {
	QuoteFunc func(ctx context.Context, req shipping.QuoteRequest) ([]shipping.Option, error)
}

func (m *MockShippingQuoter) Quote(ctx context.Context, req shipping.QuoteRequest) ([]shipping.Option, error) {
	return m.QuoteFunc(ctx, req)
}

// MockNewsletterService implements NewsletterServiceInterface for testing
type MockNewsletterService struct {
	SubscribeFunc func(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	NotifyFunc    func(ctx context.Context, a services.ProductAnnouncement) (int, error)
}

func (m *MockNewsletterService) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	if m.SubscribeFunc == nil {
		return &models.NewsletterSubscriber{ID: "sub-1", Email: email}, nil
	}
	return m.SubscribeFunc(ctx, email)
}

func (m *MockNewsletterService) Notify(ctx context.Context, a services.ProductAnnouncement) (int, error) {
	if m.NotifyFunc == nil {
		return 0, nil
	}
	return m.NotifyFunc(ctx, a)
}

// MockContactService implements ContactServiceInterface for testing
type MockContactService struct {
	SendFunc func(ctx context.Context, msg services.ContactMessage) error
}

func (m *MockContactService) Send(ctx context.Context, msg services.ContactMessage) error {
	if m.SendFunc == nil {
		return nil
	}
	return m.SendFunc(ctx, msg)
}
