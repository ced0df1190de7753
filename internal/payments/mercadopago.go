package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lojapijamas/storefront/internal/metrics"
	"github.com/lojapijamas/storefront/internal/models"
)

// Payment is the subset of the provider's payment resource used to build orders.
type Payment struct {
	ID                FlexibleID      `json:"id"`
	Status            string          `json:"status"`
	Description       string          `json:"description"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Payer             struct {
		FirstName string `json:"first_name"`
		Name      string `json:"name"`
		Email     string `json:"email"`
	} `json:"payer"`
	AdditionalInfo struct {
		Items []struct {
			Title    string      `json:"title"`
			Quantity FlexibleInt `json:"quantity"`
		} `json:"items"`
		Shipments struct {
			ReceiverAddress struct {
				Street string `json:"street"`
			} `json:"receiver_address"`
		} `json:"shipments"`
	} `json:"additional_info"`
}

// PreferenceItem is one line of a checkout preference. The API expects a
// JSON number for the price.
type PreferenceItem struct {
	Title      string  `json:"title"`
	UnitPrice  float64 `json:"unit_price"`
	Quantity   int     `json:"quantity"`
	CurrencyID string  `json:"currency_id"`
}

type BackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type PreferencePayer struct {
	Email string `json:"email"`
}

// PreferenceRequest is the body sent to the checkout preferences endpoint.
type PreferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	BackURLs            BackURLs         `json:"back_urls"`
	BinaryMode          bool             `json:"binary_mode"`
	AutoReturn          string           `json:"auto_return,omitempty"`
	StatementDescriptor string           `json:"statement_descriptor,omitempty"`
	ExternalReference   string           `json:"external_reference"`
	Payer               *PreferencePayer `json:"payer,omitempty"`
	NotificationURL     string           `json:"notification_url,omitempty"`
	Metadata            map[string]any   `json:"metadata,omitempty"`
}

// Preference is the provider's answer to a preference request.
type Preference struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point"`
}

// ProviderError reports a non-2xx answer from the provider.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("mercado pago responded %d: %s", e.StatusCode, e.Body)
}

// Client talks to the Mercado Pago REST API.
type Client struct {
	baseURL     string
	accessToken string
	timeout     time.Duration
	httpClient  *http.Client
}

func NewClient(baseURL, accessToken string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		timeout:     timeout,
		httpClient:  &http.Client{},
	}
}

// GetPayment fetches the authoritative state of a payment. The call is bounded
// by the client timeout regardless of the caller's deadline.
func (c *Client) GetPayment(ctx context.Context, id string) (*Payment, error) {
	start := time.Now()
	defer func() {
		metrics.ProviderLookupLatency.Observe(time.Since(start).Seconds())
	}()

	var payment Payment
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// CreatePreference registers a checkout preference and returns its redirect points.
func (c *Client) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", req, &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	if c.accessToken == "" {
		return fmt.Errorf("mercado pago access token: %w", models.ErrServiceUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("mercado pago request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &ProviderError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode mercado pago response: %w", err)
	}
	return nil
}
