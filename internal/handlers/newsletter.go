package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/lojapijamas/storefront/internal/models"
	"github.com/lojapijamas/storefront/internal/services"
	pkghttp "github.com/lojapijamas/storefront/pkg/http"
)

type NewsletterServiceInterface interface {
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	Notify(ctx context.Context, a services.ProductAnnouncement) (int, error)
}

type ContactServiceInterface interface {
	Send(ctx context.Context, msg services.ContactMessage) error
}

type NewsletterHandler struct {
	newsletter NewsletterServiceInterface
	contact    ContactServiceInterface
}

func NewNewsletterHandler(newsletter NewsletterServiceInterface, contact ContactServiceInterface) *NewsletterHandler {
	return &NewsletterHandler{newsletter: newsletter, contact: contact}
}

type SubscribeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type NotifyRequest struct {
	ProductName string `json:"product_name" validate:"required"`
	ProductURL  string `json:"product_url" validate:"omitempty,url"`
}

type NotifyResponse struct {
	Message    string `json:"message"`
	Recipients int    `json:"recipients"`
}

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Subscribe adds an address to the newsletter
// @Router /api/newsletter [post]
func (h *NewsletterHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.newsletter.Subscribe(r.Context(), req.Email); err != nil {
		if errors.Is(err, models.ErrConflict) {
			writeBadRequest(w, "E-mail já cadastrado.")
			return
		}
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteMessage(w, http.StatusCreated, "E-mail cadastrado com sucesso!")
}

// Notify announces a new product to every subscriber
// @Router /api/newsletter/notify [post]
func (h *NewsletterHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sent, err := h.newsletter.Notify(r.Context(), services.ProductAnnouncement{
		ProductName: req.ProductName,
		ProductURL:  req.ProductURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "Newsletter enviada com sucesso!"
	if sent == 0 {
		message = "Nenhum inscrito na newsletter."
	}
	pkghttp.WriteJSON(w, http.StatusOK, NotifyResponse{Message: message, Recipients: sent})
}

// Contact forwards a contact form message to the store mailbox
// @Router /api/contact [post]
func (h *NewsletterHandler) Contact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	err := h.contact.Send(r.Context(), services.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Subject: req.Subject,
		Message: req.Message,
	})
	if err != nil {
		var validationErr *models.ValidationError
		switch {
		case errors.As(err, &validationErr):
			writeBadRequest(w, validationErr.Message)
		case errors.Is(err, models.ErrServiceUnavailable):
			pkghttp.WriteServiceUnavailable(w, "Serviço de e-mail não configurado")
		default:
			pkghttp.WriteInternalError(w, "Erro ao enviar mensagem")
		}
		return
	}
	pkghttp.WriteMessage(w, http.StatusOK, "Mensagem enviada com sucesso")
}
