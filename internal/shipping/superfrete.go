// Package shipping quotes delivery options through the SuperFrete calculator.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lojapijamas/storefront/internal/models"
)

// Package dimensions used when a product has none recorded.
const (
	defaultWeight = 1.0
	defaultHeight = 10.0
	defaultWidth  = 15.0
	defaultLength = 20.0
)

// ErrNoServices is returned when the carrier has no service for the route.
var ErrNoServices = errors.New("no shipping service available for postal code")

type ProductLookup interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
}

type Config struct {
	Token            string
	CalculatorURL    string
	OriginPostalCode string
	UserAgent        string
	Timeout          time.Duration
}

// QuoteRequest asks for delivery options for one product.
type QuoteRequest struct {
	PostalCode    string
	ProductID     string
	DeclaredValue decimal.Decimal
	Quantity      int
}

// Option is one delivery service offered to the shopper.
type Option struct {
	Method   string `json:"method"`
	Price    string `json:"price"`
	Delivery string `json:"delivery"`
	Company  string `json:"company"`
}

type calculatorPackage struct {
	ID             string  `json:"id"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Length         float64 `json:"length"`
	Weight         float64 `json:"weight"`
	Quantity       int     `json:"quantity"`
	InsuranceValue float64 `json:"insurance_value"`
}

type postalCode struct {
	PostalCode string `json:"postal_code"`
}

type calculatorRequest struct {
	From     postalCode          `json:"from"`
	To       postalCode          `json:"to"`
	Products []calculatorPackage `json:"products"`
	Services string              `json:"services"`
}

type calculatorService struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	HasError      bool            `json:"has_error"`
	DeliveryTime  json.Number     `json:"delivery_time"`
	DeliveryRange *struct {
		Min json.Number `json:"min"`
		Max json.Number `json:"max"`
	} `json:"delivery_range"`
	Company *struct {
		Name string `json:"name"`
	} `json:"company"`
}

type Service struct {
	products   ProductLookup
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
}

func NewService(products ProductLookup, config Config, logger *slog.Logger) *Service {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	return &Service{
		products:   products,
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

// NormalizePostalCode strips everything but digits and requires eight of them.
func NormalizePostalCode(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() != 8 {
		return "", models.NewValidationError("CEP inválido.")
	}
	return b.String(), nil
}

// Quote returns the delivery options available for the product and destination.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) ([]Option, error) {
	if strings.TrimSpace(req.PostalCode) == "" || strings.TrimSpace(req.ProductID) == "" {
		return nil, models.NewValidationError("CEP de destino e ID do produto são obrigatórios.")
	}

	cep, err := NormalizePostalCode(req.PostalCode)
	if err != nil {
		return nil, err
	}

	if s.config.Token == "" {
		return nil, fmt.Errorf("superfrete token: %w", models.ErrServiceUnavailable)
	}

	product, err := s.products.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	quantity := req.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	declared := req.DeclaredValue
	if declared.IsZero() {
		declared = decimal.NewFromInt(100)
	}

	body := calculatorRequest{
		From: postalCode{PostalCode: s.config.OriginPostalCode},
		To:   postalCode{PostalCode: cep},
		Products: []calculatorPackage{{
			ID:             product.ID,
			Width:          orDefault(product.Width, defaultWidth),
			Height:         orDefault(product.Height, defaultHeight),
			Length:         orDefault(product.Length, defaultLength),
			Weight:         orDefault(product.Weight, defaultWeight),
			Quantity:       quantity,
			InsuranceValue: declared.InexactFloat64(),
		}},
		Services: "1,2",
	}

	services, err := s.calculate(ctx, body)
	if err != nil {
		return nil, err
	}

	options := make([]Option, 0, len(services))
	for _, svc := range services {
		if svc.HasError || svc.Company == nil {
			continue
		}
		options = append(options, Option{
			Method:   svc.Name,
			Price:    "R$ " + svc.Price.StringFixed(2),
			Delivery: fmt.Sprintf("Entrega em até %s dias úteis", deliveryDays(svc)),
			Company:  companyName(svc),
		})
	}

	if len(options) == 0 {
		s.logger.Warn("no shipping services returned", slog.String("postal_code", cep))
		return nil, ErrNoServices
	}

	return options, nil
}

func (s *Service) calculate(ctx context.Context, body calculatorRequest) ([]calculatorService, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calculator request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.CalculatorURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to build calculator request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.Token)
	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("superfrete request failed: %w: %v", models.ErrUpstream, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read superfrete response: %w: %v", models.ErrUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("superfrete responded %d: %w", resp.StatusCode, models.ErrUpstream)
	}

	return decodeServices(payload)
}

// decodeServices accepts either a bare array or an object with a data array.
func decodeServices(payload []byte) ([]calculatorService, error) {
	var services []calculatorService
	if err := json.Unmarshal(payload, &services); err == nil {
		return services, nil
	}

	var wrapped struct {
		Data []calculatorService `json:"data"`
	}
	if err := json.Unmarshal(payload, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode superfrete response: %w: %v", models.ErrUpstream, err)
	}
	return wrapped.Data, nil
}

func deliveryDays(svc calculatorService) string {
	if svc.DeliveryTime != "" && svc.DeliveryTime != "0" {
		return svc.DeliveryTime.String()
	}
	if svc.DeliveryRange != nil {
		if svc.DeliveryRange.Max != "" && svc.DeliveryRange.Max != "0" {
			return svc.DeliveryRange.Max.String()
		}
		if svc.DeliveryRange.Min != "" && svc.DeliveryRange.Min != "0" {
			return svc.DeliveryRange.Min.String()
		}
	}
	return "N/D"
}

func companyName(svc calculatorService) string {
	if svc.Company != nil && svc.Company.Name != "" {
		return svc.Company.Name
	}
	return "Desconhecida"
}

func orDefault(v *float64, def float64) float64 {
	if v != nil && *v > 0 {
		return *v
	}
	return def
}
