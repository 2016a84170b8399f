package repository

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

const userAgent = "SkyGlowWeather/1.0"

// Config carries the provider endpoints and credential into the clients.
type Config struct {
	BaseURL string
	GeoURL  string
	APIKey  string
	Timeout time.Duration
}

// ConfigFromEnv reads the provider settings from config.yaml and the environment.
func ConfigFromEnv() Config {
	return Config{
		BaseURL: config.GetOpenWeatherApiUrl(),
		GeoURL:  config.GetOpenWeatherGeoUrl(),
		APIKey:  config.GetOpenWeatherMapAPIKey(),
		Timeout: config.GetOpenWeatherTimeout(),
	}
}

// newRestyClient builds a resty client over httpClient. Retries stay disabled:
// one failed call is one reported error.
func newRestyClient(baseURL string, timeout time.Duration, httpClient []*http.Client) *resty.Client {
	var client *resty.Client
	if len(httpClient) > 0 && httpClient[0] != nil {
		client = resty.NewWithClient(httpClient[0])
	} else {
		client = resty.New()
	}
	client.
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("User-Agent", userAgent).
		SetRetryCount(0)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return client
}

// providerErrorFromBody extracts {cod, message} from an error payload, falling back to the HTTP status.
func providerErrorFromBody(resp *resty.Response) *ProviderError {
	var body struct {
		Cod     model.StatusCode `json:"cod"`
		Message model.Message    `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Cod != 0 {
		return &ProviderError{Code: body.Cod, Message: string(body.Message)}
	}
	return &ProviderError{Code: model.StatusCode(resp.StatusCode()), Message: http.StatusText(resp.StatusCode())}
}
