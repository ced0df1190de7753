package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/lojapijamas/storefront/internal/models"
)

// CartItem is one line of the shopper's cart as sent by the storefront.
type CartItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity FlexibleInt     `json:"quantity"`
}

// CheckoutResult is returned to the storefront to redirect the shopper.
type CheckoutResult struct {
	ID                string `json:"id"`
	InitPoint         string `json:"init_point"`
	SandboxInitPoint  string `json:"sandbox_init_point"`
	ExternalReference string `json:"external_reference"`
}

type PreferenceCreator interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error)
}

type CheckoutConfig struct {
	FrontendURL         string
	WebhookURL          string
	StatementDescriptor string
	Production          bool
}

// Checkout turns carts into provider checkout preferences.
type Checkout struct {
	provider PreferenceCreator
	config   CheckoutConfig
	logger   *slog.Logger
}

func NewCheckout(provider PreferenceCreator, config CheckoutConfig, logger *slog.Logger) *Checkout {
	return &Checkout{provider: provider, config: config, logger: logger}
}

// CreatePreference validates the cart and registers a preference. The total
// is recomputed from the items; a diverging client total is only logged.
func (c *Checkout) CreatePreference(ctx context.Context, cart []CartItem, clientTotal *decimal.Decimal, payerEmail string) (*CheckoutResult, error) {
	if len(cart) == 0 {
		return nil, models.NewValidationError("Carrinho inválido ou vazio")
	}

	items := make([]PreferenceItem, 0, len(cart))
	total := decimal.Zero
	for _, line := range cart {
		quantity := int(line.Quantity)
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 || line.Price.IsNegative() {
			continue
		}

		title := strings.TrimSpace(line.Name)
		if title == "" {
			title = "Item"
		}

		items = append(items, PreferenceItem{
			Title:      title,
			UnitPrice:  line.Price.InexactFloat64(),
			Quantity:   quantity,
			CurrencyID: "BRL",
		})
		total = total.Add(line.Price.Mul(decimal.NewFromInt(int64(quantity))))
	}

	if len(items) == 0 {
		return nil, models.NewValidationError("Itens do carrinho inválidos")
	}

	if clientTotal != nil && clientTotal.Sub(total).Abs().GreaterThan(decimal.New(1, -2)) {
		c.logger.Warn("cart total diverges from items",
			slog.String("client_total", clientTotal.StringFixed(2)),
			slog.String("computed_total", total.StringFixed(2)),
		)
	}

	reference, err := newExternalReference()
	if err != nil {
		return nil, err
	}

	req := PreferenceRequest{
		Items: items,
		BackURLs: BackURLs{
			Success: c.config.FrontendURL + "/sucesso",
			Failure: c.config.FrontendURL + "/erro",
			Pending: c.config.FrontendURL + "/erro",
		},
		BinaryMode:          true,
		StatementDescriptor: c.config.StatementDescriptor,
		ExternalReference:   reference,
		NotificationURL:     c.config.WebhookURL,
		Metadata: map[string]any{
			"total_price": total.InexactFloat64(),
		},
	}
	if c.config.Production {
		req.AutoReturn = "approved"
	}
	if email := strings.ToLower(strings.TrimSpace(payerEmail)); email != "" {
		req.Payer = &PreferencePayer{Email: email}
	}

	pref, err := c.provider.CreatePreference(ctx, req)
	if err != nil {
		return nil, &UpstreamError{Op: "create preference", Err: err}
	}

	c.logger.Info("checkout preference created",
		slog.String("preference_id", pref.ID),
		slog.String("external_reference", reference),
	)

	return &CheckoutResult{
		ID:                pref.ID,
		InitPoint:         pref.InitPoint,
		SandboxInitPoint:  pref.SandboxInitPoint,
		ExternalReference: reference,
	}, nil
}

func newExternalReference() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate external reference: %w", err)
	}
	return hex.EncodeToString(b), nil
}
