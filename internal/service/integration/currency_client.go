package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
)

type CurrencyClient interface {
	Rate(ctx context.Context, base, quote string) (float64, error)
}

type currencyClient struct {
	baseURL    string
	apiKey     string
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

type currencyResponse struct {
	Base  string             `json:"base"`
	Rates map[string]float64 `json:"rates"`
}

func NewCurrencyClient(baseURL, apiKey string, timeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) CurrencyClient {
	return &currencyClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		retryCount: retryCount,
		retryDelay: retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *currencyClient) Rate(ctx context.Context, base, quote string) (float64, error) {
	params := url.Values{}
	params.Set("base", base)
	params.Set("symbols", quote)
	if c.apiKey != "" {
		params.Set("access_key", c.apiKey)
	}

	reqURL := c.baseURL + "?" + params.Encode()

	var resp *http.Response
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("base", base).Str("quote", quote).Msg("Retrying currency request")
			time.Sleep(c.retryDelay * time.Duration(i))
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return 0, fmt.Errorf("failed to create request: %w", err)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if resp != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("currency api returned status %d", resp.StatusCode)
			resp = nil
		}
	}

	if resp == nil {
		return 0, fmt.Errorf("failed to get rate after %d attempts: %w", c.retryCount+1, lastErr)
	}
	defer resp.Body.Close()

	var payload currencyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("failed to decode currency response: %w", err)
	}

	rate, ok := payload.Rates[quote]
	if !ok {
		return 0, fmt.Errorf("currency response missing rate %s/%s", base, quote)
	}

	return rate, nil
}
