package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"vledger/internal/domain"
)

// HTTPRateProvider fetches rates from a JSON rate endpoint, expected to answer
// GET {base_url}/rates/{FROM}/{TO} with {"rate": "1.2345"}.
type HTTPRateProvider struct {
	baseURL string
	client  *http.Client
}

func NewHTTPRateProvider(baseURL string, timeout time.Duration) *HTTPRateProvider {
	return &HTTPRateProvider{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *HTTPRateProvider) Name() string {
	return "HTTPProvider"
}

func (p *HTTPRateProvider) GetRate(ctx context.Context, from, to domain.Currency) (*domain.ExchangeRate, error) {
	url := fmt.Sprintf("%s/rates/%s/%s", p.baseURL, from, to)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rate endpoint returned status %d", resp.StatusCode)
	}

	var payload struct {
		Rate decimal.Decimal `json:"rate"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode rate response: %w", err)
	}

	return &domain.ExchangeRate{
		BaseCurrency:   from,
		TargetCurrency: to,
		Rate:           payload.Rate,
		Source:         p.Name(),
		FetchedAt:      time.Now(),
	}, nil
}

// StaticRateProvider serves a fixed rate table, for development and tests.
type StaticRateProvider struct {
	rates map[string]decimal.Decimal
}

func NewStaticRateProvider(rates map[string]decimal.Decimal) *StaticRateProvider {
	if rates == nil {
		rates = map[string]decimal.Decimal{
			"USD-EUR": decimal.NewFromFloat(0.92),
			"EUR-USD": decimal.NewFromFloat(1.09),
			"USD-GBP": decimal.NewFromFloat(0.79),
			"GBP-USD": decimal.NewFromFloat(1.27),
		}
	}
	return &StaticRateProvider{rates: rates}
}

func (p *StaticRateProvider) Name() string {
	return "StaticProvider"
}

func (p *StaticRateProvider) GetRate(_ context.Context, from, to domain.Currency) (*domain.ExchangeRate, error) {
	rate, ok := p.rates[string(from)+"-"+string(to)]
	if !ok {
		return nil, fmt.Errorf("no static rate for %s-%s", from, to)
	}
	return &domain.ExchangeRate{
		BaseCurrency:   from,
		TargetCurrency: to,
		Rate:           rate,
		Source:         p.Name(),
		FetchedAt:      time.Now(),
	}, nil
}
