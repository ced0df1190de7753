package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/lojapijamas/storefront/internal/metrics"
	"github.com/lojapijamas/storefront/internal/models"
	pkglogger "github.com/lojapijamas/storefront/pkg/logger"
)

// NewsletterBatchSize caps the BCC list of one newsletter message.
const NewsletterBatchSize = 50

// ContactMessage is a message sent through the storefront contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// Mailer sends the transactional and newsletter emails.
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
	SendPasswordReset(ctx context.Context, to, name, link string) error
	SendPasswordChanged(ctx context.Context, to, name string) error
	SendNewsletter(ctx context.Context, recipients []string, subject, htmlBody string) error
	SendContact(ctx context.Context, msg ContactMessage) error
}

// SESClient is the subset of the SES API used by SESMailer.
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type MailerConfig struct {
	FromAddress string
	FromName    string
	StoreEmail  string
}

// SESMailer sends email through AWS SES.
type SESMailer struct {
	client SESClient
	config MailerConfig
	logger *slog.Logger
}

// NewSESClient loads the default AWS credential chain for region.
func NewSESClient(ctx context.Context, region string) (*ses.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return ses.NewFromConfig(cfg), nil
}

func NewSESMailer(client SESClient, config MailerConfig, logger *slog.Logger) *SESMailer {
	return &SESMailer{client: client, config: config, logger: logger}
}

func (m *SESMailer) source() string {
	if m.config.FromName == "" {
		return m.config.FromAddress
	}
	return fmt.Sprintf("%q <%s>", m.config.FromName, m.config.FromAddress)
}

type outboundEmail struct {
	kind    string
	to      []string
	bcc     []string
	replyTo string
	subject string
	html    string
}

func (m *SESMailer) send(ctx context.Context, email outboundEmail) error {
	if m.client == nil || m.config.FromAddress == "" {
		metrics.EmailsSentTotal.WithLabelValues(email.kind, "unconfigured").Inc()
		return fmt.Errorf("email sender: %w", models.ErrServiceUnavailable)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(m.source()),
		Destination: &types.Destination{
			ToAddresses:  email.to,
			BccAddresses: email.bcc,
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(email.html), Charset: aws.String("UTF-8")},
			},
		},
	}
	if email.replyTo != "" {
		input.ReplyToAddresses = []string{email.replyTo}
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		metrics.EmailsSentTotal.WithLabelValues(email.kind, "error").Inc()
		m.logger.Error("failed to send email via SES",
			slog.String("kind", email.kind),
			slog.Any("error", err))
		return fmt.Errorf("failed to send %s email: %w", email.kind, err)
	}

	metrics.EmailsSentTotal.WithLabelValues(email.kind, "sent").Inc()
	attrs := []any{slog.String("kind", email.kind)}
	if result != nil && result.MessageId != nil {
		attrs = append(attrs, slog.String("message_id", *result.MessageId))
	}
	if len(email.to) == 1 {
		attrs = append(attrs, slog.String("to", pkglogger.SanitizedEmail(email.to[0])))
	}
	m.logger.Info("email sent", attrs...)
	return nil
}

func greeting(name string) string {
	if name = strings.TrimSpace(name); name == "" {
		return "Olá!"
	}
	return fmt.Sprintf("Olá, %s!", html.EscapeString(name))
}

func (m *SESMailer) SendVerification(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(`<h2>%s</h2>
<p>Obrigado por se cadastrar na Loja Pijamas. Confirme seu e-mail para ativar a conta:</p>
<p><a href="%s">Ativar minha conta</a></p>
<p>O link expira em 24 horas. Se você não criou esta conta, ignore esta mensagem.</p>`,
		greeting(name), html.EscapeString(link))

	return m.send(ctx, outboundEmail{
		kind:    "verification",
		to:      []string{to},
		subject: "Ative sua conta",
		html:    body,
	})
}

func (m *SESMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	body := fmt.Sprintf(`<h2>%s</h2>
<p>Recebemos uma solicitação para redefinir sua senha.</p>
<p><a href="%s">Redefinir senha</a></p>
<p>O link expira em 15 minutos. Se você não fez esta solicitação, ignore esta mensagem.</p>`,
		greeting(name), html.EscapeString(link))

	return m.send(ctx, outboundEmail{
		kind:    "password_reset",
		to:      []string{to},
		subject: "Recuperação de senha",
		html:    body,
	})
}

func (m *SESMailer) SendPasswordChanged(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(`<h2>%s</h2>
<p>Sua senha foi alterada com sucesso.</p>
<p>Se não foi você, entre em contato conosco imediatamente.</p>`, greeting(name))

	return m.send(ctx, outboundEmail{
		kind:    "password_changed",
		to:      []string{to},
		subject: "Sua senha foi alterada",
		html:    body,
	})
}

// SendNewsletter delivers htmlBody to every recipient in BCC batches of
// NewsletterBatchSize. It stops at the first failed batch.
func (m *SESMailer) SendNewsletter(ctx context.Context, recipients []string, subject, htmlBody string) error {
	for start := 0; start < len(recipients); start += NewsletterBatchSize {
		end := min(start+NewsletterBatchSize, len(recipients))
		err := m.send(ctx, outboundEmail{
			kind:    "newsletter",
			bcc:     recipients[start:end],
			subject: subject,
			html:    htmlBody,
		})
		if err != nil {
			return fmt.Errorf("newsletter batch starting at %d: %w", start, err)
		}
	}
	return nil
}

func (m *SESMailer) SendContact(ctx context.Context, msg ContactMessage) error {
	to := m.config.StoreEmail
	if to == "" {
		to = m.config.FromAddress
	}
	if to == "" {
		return fmt.Errorf("store email: %w", models.ErrServiceUnavailable)
	}

	body := fmt.Sprintf(`<h2>Nova mensagem de contato</h2>
<p><strong>Nome:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Assunto:</strong> %s</p>
<p><strong>Mensagem:</strong></p>
<p>%s</p>`,
		html.EscapeString(msg.Name),
		html.EscapeString(msg.Email),
		html.EscapeString(msg.Subject),
		strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>"))

	return m.send(ctx, outboundEmail{
		kind:    "contact",
		to:      []string{to},
		replyTo: msg.Email,
		subject: "Contato: " + msg.Subject,
		html:    body,
	})
}
