package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/services"
	"github.com/lojapijamas/storefront/internal/storage"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

// multipartOverhead is allowed on top of the image size for the other form fields.
const multipartOverhead = 1 << 20

// ProductServiceInterface defines the catalog operations used over HTTP
type ProductServiceInterface interface {
	ListProducts(ctx context.Context, category string) ([]*models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, in services.CreateProductInput) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	UploadImage(upload services.ImageUpload) (string, error)
}

type ProductHandler struct {
	service       ProductServiceInterface
	maxUploadSize int64
}

func NewProductHandler(service ProductServiceInterface, maxUploadSize int64) *ProductHandler {
	return &ProductHandler{service: service, maxUploadSize: maxUploadSize}
}

// UploadResponse is returned by the standalone upload endpoint
type UploadResponse struct {
	URL string `json:"url"`
}

// ListProducts returns the catalog, optionally filtered by ?category=
// @Router /api/products [get]
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, r.URL.Query().Get("category"))
}

// ListByCategory returns the products of one category
// @Router /api/products/category/{category} [get]
func (h *ProductHandler) ListByCategory(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, chi.URLParam(r, "category"))
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, category string) {
	products, err := h.service.ListProducts(r.Context(), category)
	if err != nil {
		pkghttp.WriteInternalError(w, "Erro ao listar produtos")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, products)
}

// GetProduct returns one product
// @Router /api/products/{id} [get]
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Produto não encontrado")
			return
		}
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, product)
}

// CreateProduct creates a product from a multipart form with an optional "image" file
// @Router /api/products [post]
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	in := services.CreateProductInput{
		Name:     r.FormValue("name"),
		Price:    r.FormValue("price"),
		Category: r.FormValue("category"),
	}
	dims := []struct {
		field string
		dst   **float64
	}{
		{"weight", &in.Weight},
		{"height", &in.Height},
		{"width", &in.Width},
		{"length", &in.Length},
	}
	for _, d := range dims {
		v, err := formFloat(r, d.field)
		if err != nil {
			writeBadRequest(w, err.Error())
			return
		}
		*d.dst = v
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		in.Image = &services.ImageUpload{Filename: header.Filename, Content: file}
	case !errors.Is(err, http.ErrMissingFile):
		writeBadRequest(w, "Arquivo de imagem inválido")
		return
	}

	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		if writeStorageError(w, err) {
			return
		}
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			writeBadRequest(w, validationErr.Message)
			return
		}
		pkghttp.WriteInternalError(w, "Erro ao criar produto")
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, product)
}

// DeleteProduct removes a product and its image
// @Router /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Produto não encontrado")
			return
		}
		pkghttp.WriteInternalError(w, "Erro ao excluir produto")
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, "Produto excluído com sucesso")
}

// Upload stores the multipart "file" field and returns its public URL
// @Router /api/upload [post]
func (h *ProductHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "Nenhum arquivo enviado")
		return
	}
	defer file.Close()

	url, err := h.service.UploadImage(services.ImageUpload{Filename: header.Filename, Content: file})
	if err != nil {
		if writeStorageError(w, err) {
			return
		}
		pkghttp.WriteInternalError(w, "Erro ao salvar arquivo")
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, UploadResponse{URL: url})
}

func (h *ProductHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, multipart.ErrMessageTooLarge) {
			pkghttp.WriteRequestTooLarge(w, "Arquivo excede o tamanho máximo permitido")
			return false
		}
		writeBadRequest(w, "Formulário inválido")
		return false
	}
	return true
}

func writeStorageError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, storage.ErrNotImage):
		writeBadRequest(w, "Apenas imagens são permitidas")
	case errors.Is(err, storage.ErrTooLarge):
		pkghttp.WriteRequestTooLarge(w, "Arquivo excede o tamanho máximo permitido")
	default:
		return false
	}
	return true
}

// formFloat parses an optional numeric form field. A comma decimal separator is accepted.
func formFloat(r *http.Request, field string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(raw, ",", ".", 1), 64)
	if err != nil {
		return nil, fmt.Errorf("%s inválido", field)
	}
	return &v, nil
}
