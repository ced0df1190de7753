package services

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojapijamas/storefront/internal/events"
	"github.com/lojapijamas/storefront/internal/models"
)

type memoryProducts struct {
	products  map[string]*models.Product
	createErr error
}

func (m *memoryProducts) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	p.ID = validUserID
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryProducts) GetByID(_ context.Context, id string) (*models.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, models.ErrNotFound
}

func (m *memoryProducts) List(_ context.Context, category string) ([]*models.Product, error) {
	out := []*models.Product{}
	for _, p := range m.products {
		if category == "" || p.Category == strings.ToLower(category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryProducts) Delete(_ context.Context, id string) (*models.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	delete(m.products, id)
	return p, nil
}

type memoryImages struct {
	saved   map[string]string
	removed []string
}

func (m *memoryImages) SaveImage(name string, r io.Reader) (string, error) {
	b, _ := io.ReadAll(r)
	url := "/uploads/" + name
	m.saved[url] = string(b)
	return url, nil
}

func (m *memoryImages) Remove(url string) error {
	m.removed = append(m.removed, url)
	return nil
}

func newProductFixture() (*ProductService, *memoryProducts, *memoryImages) {
	repo := &memoryProducts{products: map[string]*models.Product{}}
	images := &memoryImages{saved: map[string]string{}}
	return NewProductService(repo, images, testLogger()), repo, images
}

func TestProductService_CreateProduct(t *testing.T) {
	svc, _, images := newProductFixture()
	weight, zero := 0.4, 0.0

	p, err := svc.CreateProduct(context.Background(), CreateProductInput{
		Name:     " Pijama Longo ",
		Price:    "129,90",
		Category: " Inverno ",
		Weight:   &weight,
		Height:   &zero,
		Image:    &ImageUpload{Filename: "foto.png", Content: strings.NewReader("png")},
	})

	require.NoError(t, err)
	assert.Equal(t, "Pijama Longo", p.Name)
	assert.Equal(t, "inverno", p.Category)
	assert.Equal(t, "129,90", p.Price)
	require.NotNil(t, p.Image)
	assert.Equal(t, "/uploads/foto.png", *p.Image)
	assert.Equal(t, "png", images.saved["/uploads/foto.png"])
	assert.Equal(t, 0.4, *p.Weight)
	assert.Nil(t, p.Height, "non-positive dimensions are dropped")
}

func TestProductService_CreateProduct_Rejections(t *testing.T) {
	svc, repo, images := newProductFixture()
	var validationErr *models.ValidationError

	_, err := svc.CreateProduct(context.Background(), CreateProductInput{Name: "x", Category: "y"})
	assert.ErrorAs(t, err, &validationErr)

	_, err = svc.CreateProduct(context.Background(), CreateProductInput{Name: "x", Price: "abc", Category: "y"})
	assert.ErrorAs(t, err, &validationErr)

	repo.createErr = errors.New("db down")
	_, err = svc.CreateProduct(context.Background(), CreateProductInput{
		Name: "x", Price: "10", Category: "y",
		Image: &ImageUpload{Filename: "a.png", Content: strings.NewReader("png")},
	})
	assert.ErrorIs(t, err, models.ErrInternalServer)
	assert.Equal(t, []string{"/uploads/a.png"}, images.removed, "orphaned image cleaned up")
}

func TestProductService_ListAndDelete(t *testing.T) {
	svc, repo, images := newProductFixture()
	img := "/uploads/a.png"
	repo.products[validUserID] = &models.Product{ID: validUserID, Category: "verao", Image: &img}
	repo.products["other"] = &models.Product{ID: "other", Category: "inverno"}

	all, err := svc.ListProducts(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	summer, err := svc.ListProducts(context.Background(), "Verao")
	require.NoError(t, err)
	assert.Len(t, summer, 1)

	require.NoError(t, svc.DeleteProduct(context.Background(), validUserID))
	assert.Equal(t, []string{img}, images.removed)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), validUserID), models.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), "bad-id"), models.ErrNotFound)
}

type memoryOrders struct {
	orders map[string]*models.Order
}

func (m *memoryOrders) List(context.Context) ([]*models.Order, error) {
	out := []*models.Order{}
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, nil
}

func (m *memoryOrders) ListByEmail(_ context.Context, email string) ([]*models.Order, error) {
	out := []*models.Order{}
	for _, o := range m.orders {
		if strings.EqualFold(o.Email, email) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memoryOrders) UpdateStatus(_ context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	return o, nil
}

type capturingPublisher struct {
	events []events.OrderStatusChanged
}

func (p *capturingPublisher) PublishOrderStatusChanged(_ context.Context, e events.OrderStatusChanged) error {
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestOrderService_UpdateStatus(t *testing.T) {
	paymentID := "pay-1"
	repo := &memoryOrders{orders: map[string]*models.Order{
		validUserID: {ID: validUserID, Status: models.OrderStatusApproved, PaymentID: &paymentID, Email: "ana@example.com"},
	}}
	publisher := &capturingPublisher{}
	svc := NewOrderService(repo, &MockUserRepository{}, publisher, testLogger())

	order, err := svc.UpdateStatus(context.Background(), validUserID, " Enviado ")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusShipped, order.Status)
	require.Len(t, publisher.events, 1)
	assert.Equal(t, events.SourceAdmin, publisher.events[0].Source)
	assert.Equal(t, "pay-1", publisher.events[0].PaymentID)

	var validationErr *models.ValidationError
	_, err = svc.UpdateStatus(context.Background(), validUserID, "Perdido")
	assert.ErrorAs(t, err, &validationErr)

	_, err = svc.UpdateStatus(context.Background(), "6f1c2a9e-0000-4e55-9a61-0c2d4b8e7f10", "Entregue")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestOrderService_ListMine(t *testing.T) {
	repo := &memoryOrders{orders: map[string]*models.Order{
		"o1": {ID: "o1", Email: "ana@example.com"},
		"o2": {ID: "o2", Email: "bia@example.com"},
	}}
	users := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return NewTestUser(id, "bia@example.com", "Bia"), nil
		},
	}
	svc := NewOrderService(repo, users, nil, testLogger())
	ctx := context.Background()

	mine, err := svc.ListMine(ctx, &models.TokenClaims{UserID: "u1", Email: "ana@example.com"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "o1", mine[0].ID)

	mine, err = svc.ListMine(ctx, &models.TokenClaims{UserID: validUserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "o2", mine[0].ID, "email resolved from the account")

	mine, err = svc.ListMine(ctx, &models.TokenClaims{UserID: "not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = svc.ListMine(ctx, nil)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

type memoryNewsletter struct {
	emails []string
}

func (m *memoryNewsletter) Subscribe(_ context.Context, email string) (*models.NewsletterSubscriber, error) {
	for _, e := range m.emails {
		if e == email {
			return nil, models.ErrConflict
		}
	}
	m.emails = append(m.emails, email)
	return &models.NewsletterSubscriber{ID: "s", Email: email}, nil
}

func (m *memoryNewsletter) ListEmails(context.Context) ([]string, error) {
	return m.emails, nil
}

func TestNewsletterService(t *testing.T) {
	repo := &memoryNewsletter{}
	mailer := &MockMailer{}
	svc := NewNewsletterService(repo, mailer, testLogger())
	ctx := context.Background()

	sent, err := svc.Notify(ctx, ProductAnnouncement{ProductName: "Pijama"})
	require.NoError(t, err)
	assert.Zero(t, sent, "no subscribers, nothing sent")
	assert.Empty(t, mailer.Sent)

	_, err = svc.Subscribe(ctx, " Ana@Example.com ")
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, "ana@example.com")
	assert.ErrorIs(t, err, models.ErrConflict)

	var validationErr *models.ValidationError
	_, err = svc.Notify(ctx, ProductAnnouncement{})
	assert.ErrorAs(t, err, &validationErr)

	sent, err = svc.Notify(ctx, ProductAnnouncement{ProductName: "<Pijama>", ProductURL: "https://loja.example.com/p/1"})
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, "Novo produto: <Pijama>!", mailer.Sent[0].Subject)
	assert.Contains(t, mailer.Sent[0].Body, "&lt;Pijama&gt;")
	assert.Contains(t, mailer.Sent[0].Body, "https://loja.example.com/p/1")
}

func TestContactService_Send(t *testing.T) {
	mailer := &MockMailer{}
	svc := NewContactService(mailer, testLogger())

	var validationErr *models.ValidationError
	assert.ErrorAs(t, svc.Send(context.Background(), ContactMessage{Name: "Ana", Email: "ana@example.com"}), &validationErr)

	require.NoError(t, svc.Send(context.Background(), ContactMessage{Name: " Ana ", Email: "ANA@example.com", Subject: "Troca", Message: "Olá"}))
	require.Len(t, mailer.Sent, 1)
	assert.Equal(t, []string{"ana@example.com"}, mailer.Sent[0].To)
}
