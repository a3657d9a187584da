package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "pricewatch/internal/errors"
	"pricewatch/pkg/utils"
)

const coinCapAssetURL = "https://api.coincap.io/v2/assets/"

// coinCapAliases maps common symbols and names to CoinCap asset ids.
var coinCapAliases = map[string]string{
	"BTC":      "bitcoin",
	"BITCOIN":  "bitcoin",
	"ETH":      "ethereum",
	"ETHEREUM": "ethereum",
	"SOL":      "solana",
	"SOLANA":   "solana",
	"ADA":      "cardano",
	"CARDANO":  "cardano",
	"DOGE":     "dogecoin",
	"DOGECOIN": "dogecoin",
	"XRP":      "ripple",
	"RIPPLE":   "ripple",
	"DOT":      "polkadot",
	"POLKADOT": "polkadot",
	"LTC":      "litecoin",
	"LITECOIN": "litecoin",
	"LINK":     "chainlink",
	"MATIC":    "polygon-pos",
	"POLYGON":  "polygon-pos",
}

// CoinCapProvider fetches crypto quotes from the CoinCap assets endpoint.
type CoinCapProvider struct {
	client  *http.Client
	baseURL string
	retry   utils.RetryConfig
}

// NewCoinCapProvider creates a CoinCap quote provider.
func NewCoinCapProvider() *CoinCapProvider {
	return &CoinCapProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: coinCapAssetURL,
		retry:   utils.DefaultRetryConfig(),
	}
}

// Name returns the provider name.
func (p *CoinCapProvider) Name() string {
	return "coincap"
}

// assetID resolves a user symbol to a CoinCap asset id.
func assetID(symbol string) string {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if id, ok := coinCapAliases[key]; ok {
		return id
	}
	return strings.ToLower(key)
}

type coinCapResponse struct {
	Data struct {
		ID       string `json:"id"`
		PriceUSD string `json:"priceUsd"`
	} `json:"data"`
}

// Quote fetches the USD price for a crypto asset.
func (p *CoinCapProvider) Quote(ctx context.Context, symbol string) (float64, error) {
	id := assetID(symbol)
	if id == "" {
		return 0, apperrors.NewQuoteError(p.Name(), symbol, fmt.Errorf("empty symbol"))
	}

	price, err := utils.RetryWithResult(ctx, p.retry, func() (float64, error) {
		return p.fetch(ctx, id)
	})
	if err != nil {
		return 0, apperrors.NewQuoteError(p.Name(), symbol, err)
	}
	return price, nil
}

func (p *CoinCapProvider) fetch(ctx context.Context, id string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+url.PathEscape(id), nil)
	if err != nil {
		return 0, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, apperrors.ErrSymbolNotFound
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return 0, apperrors.ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coincap returned status %d", resp.StatusCode)
	}

	var parsed coinCapResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decoding coincap response: %w", err)
	}
	if parsed.Data.PriceUSD == "" {
		return 0, apperrors.ErrSymbolNotFound
	}

	price, err := strconv.ParseFloat(parsed.Data.PriceUSD, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing coincap price %q: %w", parsed.Data.PriceUSD, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("no price for %s", id)
	}
	return price, nil
}
