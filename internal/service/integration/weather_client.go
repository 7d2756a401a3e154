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

type WeatherClient interface {
	CurrentByCity(ctx context.Context, cityCode string) (*WeatherReport, error)
}

type weatherClient struct {
	baseURL    string
	apiKey     string
	retryCount int
	retryDelay time.Duration
	client     *http.Client
	logger     zerolog.Logger
}

type WeatherReport struct {
	City        string
	Description string
	TempC       float64
	FeelsLikeC  float64
	Humidity    int
}

type weatherResponse struct {
	Name    string `json:"name"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
}

func NewWeatherClient(baseURL, apiKey string, timeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) WeatherClient {
	return &weatherClient{
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

func (c *weatherClient) CurrentByCity(ctx context.Context, cityCode string) (*WeatherReport, error) {
	params := url.Values{}
	params.Set("q", cityCode)
	params.Set("appid", c.apiKey)
	params.Set("units", "metric")

	reqURL := c.baseURL + "?" + params.Encode()

	var resp *http.Response
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("city", cityCode).Msg("Retrying weather request")
			time.Sleep(c.retryDelay * time.Duration(i))
		}

		req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if resp != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("weather api returned status %d", resp.StatusCode)
			resp = nil
		}
	}

	if resp == nil {
		return nil, fmt.Errorf("failed to get weather after %d attempts: %w", c.retryCount+1, lastErr)
	}
	defer resp.Body.Close()

	var payload weatherResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode weather response: %w", err)
	}

	report := &WeatherReport{
		City:       payload.Name,
		TempC:      payload.Main.Temp,
		FeelsLikeC: payload.Main.FeelsLike,
		Humidity:   payload.Main.Humidity,
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
	}
	if report.City == "" {
		return nil, fmt.Errorf("weather response missing city for %q", cityCode)
	}

	return report, nil
}
