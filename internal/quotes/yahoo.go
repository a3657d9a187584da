package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "pricewatch/internal/errors"
	"pricewatch/pkg/utils"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// YahooProvider fetches stock quotes from the Yahoo Finance chart endpoint.
type YahooProvider struct {
	client  *http.Client
	baseURL string
	retry   utils.RetryConfig
}

// NewYahooProvider creates a Yahoo Finance quote provider.
func NewYahooProvider() *YahooProvider {
	return &YahooProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: yahooChartURL,
		retry:   utils.DefaultRetryConfig(),
	}
}

// Name returns the provider name.
func (p *YahooProvider) Name() string {
	return "yahoo"
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Quote fetches the regular market price for a symbol.
func (p *YahooProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return 0, apperrors.NewQuoteError(p.Name(), symbol, fmt.Errorf("empty symbol"))
	}

	price, err := utils.RetryWithResult(ctx, p.retry, func() (float64, error) {
		return p.fetch(ctx, symbol)
	})
	if err != nil {
		return 0, apperrors.NewQuoteError(p.Name(), symbol, err)
	}
	return price, nil
}

func (p *YahooProvider) fetch(ctx context.Context, symbol string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+url.PathEscape(symbol), nil)
	if err != nil {
		return 0, err
	}
	// The chart endpoint rejects requests without a browser-ish agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, apperrors.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("yahoo returned status %d", resp.StatusCode)
	}

	var parsed yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding yahoo response: %w", err)
	}

	if parsed.Chart.Error != nil {
		return 0, fmt.Errorf("yahoo error [%s]: %s", parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return 0, apperrors.ErrSymbolNotFound
	}

	price := parsed.Chart.Result[0].Meta.RegularMarketPrice
	if price <= 0 {
		return 0, fmt.Errorf("no market price for %s", symbol)
	}
	return price, nil
}
