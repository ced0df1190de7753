package services

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/lojapijamas/storefront/internal/models"
	pkglogger "github.com/lojapijamas/storefront/pkg/logger"
)

type NewsletterRepository interface {
	Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error)
	ListEmails(ctx context.Context) ([]string, error)
}

// ProductAnnouncement is the content of a new-product newsletter.
type ProductAnnouncement struct {
	ProductName string
	ProductURL  string
}

type NewsletterService struct {
	repo   NewsletterRepository
	mailer Mailer
	logger *slog.Logger
}

func NewNewsletterService(repo NewsletterRepository, mailer Mailer, logger *slog.Logger) *NewsletterService {
	return &NewsletterService{repo: repo, mailer: mailer, logger: logger}
}

// Subscribe adds email to the mailing list. A duplicate address is a conflict.
func (s *NewsletterService) Subscribe(ctx context.Context, email string) (*models.NewsletterSubscriber, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	sub, err := s.repo.Subscribe(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to subscribe to newsletter", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("newsletter subscription", slog.String("email", pkglogger.SanitizedEmail(email)))
	return sub, nil
}

// Notify announces a product to every subscriber and returns how many
// addresses were mailed.
func (s *NewsletterService) Notify(ctx context.Context, a ProductAnnouncement) (int, error) {
	name := strings.TrimSpace(a.ProductName)
	if name == "" {
		return 0, models.NewValidationError("Nome do produto é obrigatório.")
	}

	recipients, err := s.repo.ListEmails(ctx)
	if err != nil {
		s.logger.Error("failed to list newsletter subscribers", slog.Any("error", err))
		return 0, models.ErrInternalServer
	}
	if len(recipients) == 0 {
		return 0, nil
	}

	var body strings.Builder
	body.WriteString("<h2>Novo produto disponível!</h2>\n<p>Confira agora o novo item da nossa loja:</p>\n")
	fmt.Fprintf(&body, "<h3>%s</h3>\n", html.EscapeString(name))
	if url := strings.TrimSpace(a.ProductURL); url != "" {
		fmt.Fprintf(&body, "<p><a href=\"%s\">Clique aqui para ver o produto</a></p>\n", html.EscapeString(url))
	}
	body.WriteString("<p>Equipe Loja Pijamas</p>")

	if err := s.mailer.SendNewsletter(ctx, recipients, fmt.Sprintf("Novo produto: %s!", name), body.String()); err != nil {
		return 0, err
	}

	s.logger.Info("newsletter sent", slog.Int("recipients", len(recipients)))
	return len(recipients), nil
}

// ContactService forwards contact form messages to the store mailbox.
type ContactService struct {
	mailer Mailer
	logger *slog.Logger
}

func NewContactService(mailer Mailer, logger *slog.Logger) *ContactService {
	return &ContactService{mailer: mailer, logger: logger}
}

func (s *ContactService) Send(ctx context.Context, msg ContactMessage) error {
	msg = ContactMessage{
		Name:    strings.TrimSpace(msg.Name),
		Email:   strings.ToLower(strings.TrimSpace(msg.Email)),
		Subject: strings.TrimSpace(msg.Subject),
		Message: strings.TrimSpace(msg.Message),
	}
	if msg.Name == "" || msg.Email == "" || msg.Subject == "" || msg.Message == "" {
		return models.NewValidationError("Dados inválidos")
	}

	if err := s.mailer.SendContact(ctx, msg); err != nil {
		return err
	}
	s.logger.Info("contact message forwarded", slog.String("from", pkglogger.SanitizedEmail(msg.Email)))
	return nil
}
