package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

// DefaultSuggestionLimit is the number of candidates requested when the caller passes none.
const DefaultSuggestionLimit = 5

// GeocodingRepository resolves a partial query into candidate places.
type GeocodingRepository interface {
	FetchSuggestions(ctx context.Context, query string, limit int) ([]model.CitySuggestion, error)
}

type geocodingRepository struct {
	client *resty.Client
	apiKey string
}

// NewGeocodingRepository creates a client for the /geo/1.0 endpoints.
func NewGeocodingRepository(cfg Config, httpClient ...*http.Client) GeocodingRepository {
	return &geocodingRepository{
		client: newRestyClient(cfg.GeoURL, cfg.Timeout, httpClient),
		apiKey: cfg.APIKey,
	}
}

// FetchSuggestions returns up to limit places matching query.
func (r *geocodingRepository) FetchSuggestions(ctx context.Context, query string, limit int) ([]model.CitySuggestion, error) {
	if r.apiKey == "" {
		return nil, ErrAPIKeyMissing
	}
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"q":     query,
			"limit": strconv.Itoa(limit),
			"appid": r.apiKey,
		}).
		Get("/direct")
	if err != nil {
		return nil, &NetworkError{Op: "/direct", Err: err}
	}
	if !resp.IsSuccess() {
		return nil, providerErrorFromBody(resp)
	}

	var places []model.GeoPlace
	if err := json.Unmarshal(resp.Body(), &places); err != nil {
		return nil, fmt.Errorf("%w: /direct: %v", ErrDecode, err)
	}

	if len(places) > limit {
		places = places[:limit]
	}
	suggestions := make([]model.CitySuggestion, 0, len(places))
	for _, p := range places {
		suggestions = append(suggestions, model.CitySuggestion{
			Name:    p.Name,
			Country: p.Country,
			State:   p.State,
			Lat:     p.Lat,
			Lon:     p.Lon,
		})
	}
	return suggestions, nil
}
