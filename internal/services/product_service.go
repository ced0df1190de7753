package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lojapijamas/storefront/internal/models"
)

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, category string) ([]*models.Product, error)
	Delete(ctx context.Context, id string) (*models.Product, error)
}

// ImageStore persists product images and returns their public URL.
type ImageStore interface {
	SaveImage(originalName string, r io.Reader) (string, error)
	Remove(url string) error
}

// ImageUpload is an image attached to a product form.
type ImageUpload struct {
	Filename string
	Content  io.Reader
}

type CreateProductInput struct {
	Name     string
	Price    string
	Category string
	Weight   *float64
	Height   *float64
	Width    *float64
	Length   *float64
	Image    *ImageUpload
}

type ProductService struct {
	repo   ProductRepository
	images ImageStore
	logger *slog.Logger
}

func NewProductService(repo ProductRepository, images ImageStore, logger *slog.Logger) *ProductService {
	return &ProductService{repo: repo, images: images, logger: logger}
}

// ListProducts returns the catalog, filtered by category when one is given.
func (s *ProductService) ListProducts(ctx context.Context, category string) ([]*models.Product, error) {
	products, err := s.repo.List(ctx, strings.TrimSpace(category))
	if err != nil {
		s.logger.Error("failed to list products", slog.String("category", category), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return products, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if !validID(id) {
		return nil, models.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// positive drops dimensions that are not usable for shipping quotes.
func positive(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// CreateProduct stores the image first, then the product. The image is
// removed again when the insert fails.
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	name := strings.TrimSpace(in.Name)
	price := strings.TrimSpace(in.Price)
	category := strings.ToLower(strings.TrimSpace(in.Category))

	if name == "" || price == "" || category == "" {
		return nil, models.NewValidationError("Nome, preço e categoria são obrigatórios")
	}
	if p, err := decimal.NewFromString(strings.Replace(price, ",", ".", 1)); err != nil || p.IsNegative() {
		return nil, models.NewValidationError("Preço inválido")
	}

	product := &models.Product{
		Name:     name,
		Price:    price,
		Category: category,
		Weight:   positive(in.Weight),
		Height:   positive(in.Height),
		Width:    positive(in.Width),
		Length:   positive(in.Length),
	}

	if in.Image != nil {
		url, err := s.images.SaveImage(in.Image.Filename, in.Image.Content)
		if err != nil {
			return nil, err
		}
		product.Image = &url
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if product.Image != nil {
			if rmErr := s.images.Remove(*product.Image); rmErr != nil {
				s.logger.Warn("failed to remove orphaned image", slog.Any("error", rmErr))
			}
		}
		s.logger.Error("failed to create product", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("product created", slog.String("product_id", created.ID), slog.String("category", created.Category))
	return created, nil
}

// DeleteProduct removes the product and its stored image.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	if !validID(id) {
		return models.ErrNotFound
	}

	product, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to delete product", slog.String("product_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if product.Image != nil {
		if err := s.images.Remove(*product.Image); err != nil {
			s.logger.Warn("failed to remove product image", slog.String("product_id", id), slog.Any("error", err))
		}
	}
	return nil
}

// UploadImage stores a standalone image and returns its URL.
func (s *ProductService) UploadImage(upload ImageUpload) (string, error) {
	return s.images.SaveImage(upload.Filename, upload.Content)
}
