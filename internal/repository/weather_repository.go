package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

// WeatherRepository defines the interface for weather data access
type WeatherRepository interface {
	FetchByCoordinates(ctx context.Context, lat, lon float64) (*model.RawWeather, error)
	FetchByCityName(ctx context.Context, name string) (*model.RawWeather, error)
}

// weatherRepository implements WeatherRepository
type weatherRepository struct {
	client *resty.Client
	apiKey string
}

// NewWeatherRepository creates a new weather repository instance
func NewWeatherRepository(cfg Config, httpClient ...*http.Client) WeatherRepository {
	return &weatherRepository{
		client: newRestyClient(cfg.BaseURL, cfg.Timeout, httpClient),
		apiKey: cfg.APIKey,
	}
}

// FetchByCoordinates reads current conditions and the forecast for a position.
func (r *weatherRepository) FetchByCoordinates(ctx context.Context, lat, lon float64) (*model.RawWeather, error) {
	return r.fetch(ctx, map[string]string{
		"lat": strconv.FormatFloat(lat, 'f', -1, 64),
		"lon": strconv.FormatFloat(lon, 'f', -1, 64),
	})
}

// FetchByCityName reads current conditions and the forecast for a city name.
func (r *weatherRepository) FetchByCityName(ctx context.Context, name string) (*model.RawWeather, error) {
	return r.fetch(ctx, map[string]string{"q": name})
}

// fetch performs the two sequential reads. The forecast is only requested once
// the current record reports success.
func (r *weatherRepository) fetch(ctx context.Context, location map[string]string) (*model.RawWeather, error) {
	if r.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}

	var current model.OpenWeatherMapResponse
	if err := r.get(ctx, "/weather", location, &current, &current.Cod, &current.Message); err != nil {
		return nil, err
	}

	var forecast model.OpenWeatherMapForecastResponse
	if err := r.get(ctx, "/forecast", location, &forecast, &forecast.Cod, &forecast.Message); err != nil {
		return nil, err
	}

	config.GetLogger().Debugw("Fetched weather", "location", location, "entries", len(forecast.List))
	return &model.RawWeather{Current: &current, Forecast: &forecast}, nil
}

// get decodes endpoint's body into out and checks the embedded status code.
func (r *weatherRepository) get(ctx context.Context, endpoint string, location map[string]string, out interface{}, cod *model.StatusCode, msg *model.Message) error {
	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(location).
		SetQueryParam("appid", r.apiKey).
		SetQueryParam("units", "metric").
		Get(endpoint)
	if err != nil {
		return &NetworkError{Op: endpoint, Err: err}
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		if !resp.IsSuccess() {
			return providerErrorFromBody(resp)
		}
		return fmt.Errorf("%w: %s: %v", ErrDecode, endpoint, err)
	}

	if *cod == 0 {
		if !resp.IsSuccess() {
			return providerErrorFromBody(resp)
		}
		*cod = model.StatusSuccess
	}
	if *cod != model.StatusSuccess {
		return &ProviderError{Code: *cod, Message: string(*msg)}
	}
	return nil
}
