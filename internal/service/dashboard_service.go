package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/geolocation"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
	"github.com/fakhrymubarak/skyglow-weather/internal/normalizer"
	"github.com/fakhrymubarak/skyglow-weather/internal/notify"
	"github.com/fakhrymubarak/skyglow-weather/internal/repository"
)

const (
	msgFetchFailed         = "Failed to fetch weather data"
	msgLocationFetchFailed = "Failed to fetch weather data for this location"
)

var (
	// ErrWeatherService wraps every lookup failure surfaced to callers.
	ErrWeatherService = errors.New("weather service error")
	// ErrSuperseded is returned when a newer request finished first and this result was dropped.
	ErrSuperseded = errors.New("superseded by a newer request")
)

// RecentStore is the subset of recent.Store the dashboard uses.
type RecentStore interface {
	Load(ctx context.Context) []string
	Record(ctx context.Context, location string) ([]string, error)
}

// DashboardServiceInterface is what the HTTP layer drives.
type DashboardServiceInterface interface {
	Init(ctx context.Context) error
	Search(ctx context.Context, name string) error
	SelectSuggestion(ctx context.Context, s model.CitySuggestion) error
	ReplayRecent(ctx context.Context, name string) error
	FetchByCoordinates(ctx context.Context, lat, lon float64) error
	RecentSearches(ctx context.Context) []string
	Snapshot(ctx context.Context) model.Dashboard
}

// DashboardService owns the display model and sequences lookups against it.
type DashboardService struct {
	WeatherRepo repository.WeatherRepository
	Recent      RecentStore
	Locator     geolocation.Locator
	Notifier    notify.Notifier
	DefaultCity string

	mu       sync.Mutex
	current  *model.CurrentConditions
	forecast []model.ForecastDay
	inFlight int
	// seq is the token of the newest lookup. Only that lookup may touch the display model.
	seq uint64
}

func NewDashboardService(repo repository.WeatherRepository, recent RecentStore, locator geolocation.Locator, notifier notify.Notifier) *DashboardService {
	return &DashboardService{
		WeatherRepo: repo,
		Recent:      recent,
		Locator:     locator,
		Notifier:    notifier,
		DefaultCity: config.GetDefaultCity(),
	}
}

// Init shows the weather at the device position, or at the default city when the
// position is denied or unavailable.
func (s *DashboardService) Init(ctx context.Context) error {
	if s.Locator != nil {
		coords, err := s.Locator.Locate(ctx)
		if err == nil {
			return s.FetchByCoordinates(ctx, coords.Lat, coords.Lon)
		}
		config.GetLogger().Infow("Geolocation unavailable, using default city", "city", s.defaultCity(), "error", err)
	}
	return s.Search(ctx, s.defaultCity())
}

func (s *DashboardService) defaultCity() string {
	if s.DefaultCity == "" {
		return "London"
	}
	return s.DefaultCity
}

// Search looks a city up by name and records it on success. Blank names are ignored.
func (s *DashboardService) Search(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return s.fetchByName(ctx, name)
}

// ReplayRecent repeats a lookup from the recent-searches list.
func (s *DashboardService) ReplayRecent(ctx context.Context, name string) error {
	return s.Search(ctx, name)
}

// SelectSuggestion records the suggestion's label, then looks it up by coordinates.
// The label is recorded whatever the outcome of the lookup.
func (s *DashboardService) SelectSuggestion(ctx context.Context, suggestion model.CitySuggestion) error {
	s.record(ctx, suggestion.Label())
	return s.FetchByCoordinates(ctx, suggestion.Lat, suggestion.Lon)
}

func (s *DashboardService) FetchByCoordinates(ctx context.Context, lat, lon float64) error {
	_, err := s.load(ctx, msgFetchFailed, func(ctx context.Context) (*model.RawWeather, error) {
		return s.WeatherRepo.FetchByCoordinates(ctx, lat, lon)
	})
	return err
}

func (s *DashboardService) fetchByName(ctx context.Context, name string) error {
	weather, err := s.load(ctx, msgLocationFetchFailed, func(ctx context.Context) (*model.RawWeather, error) {
		return s.WeatherRepo.FetchByCityName(ctx, name)
	})
	// A superseded lookup that succeeded still counts as a successful search.
	if weather != nil {
		s.record(ctx, name)
	}
	return err
}

// load runs one lookup under the loading flag and applies its result if it is
// still the newest. A failure leaves the display model untouched and emits one
// notification. A superseded lookup returns ErrSuperseded, with its weather if it
// succeeded; its failure is not notified.
func (s *DashboardService) load(ctx context.Context, failure string, fetch func(context.Context) (*model.RawWeather, error)) (*model.Weather, error) {
	s.mu.Lock()
	s.seq++
	token := s.seq
	s.inFlight++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	var weather *model.Weather
	raw, err := fetch(ctx)
	if err == nil && raw == nil {
		err = normalizer.ErrMissingRecord
	}
	if err == nil {
		weather, err = normalizer.Normalize(raw.Current, raw.Forecast)
	}

	s.mu.Lock()
	latest := token == s.seq
	if latest && err == nil {
		current := weather.Current
		s.current = &current
		s.forecast = weather.Forecast
	}
	s.mu.Unlock()

	if !latest {
		config.GetLogger().Debugw("Discarding superseded weather result", "token", token, "error", err)
		if err != nil {
			return nil, ErrSuperseded
		}
		return weather, ErrSuperseded
	}
	if err != nil {
		config.GetLogger().Errorw("Weather lookup failed", "error", err)
		if s.Notifier != nil {
			s.Notifier.Notify(notify.Error(failure))
		}
		return nil, errors.Join(ErrWeatherService, err)
	}
	return weather, nil
}

func (s *DashboardService) record(ctx context.Context, location string) {
	if s.Recent == nil {
		return
	}
	if _, err := s.Recent.Record(ctx, location); err != nil {
		config.GetLogger().Warnw("Could not persist recent search", "location", location, "error", err)
	}
}

func (s *DashboardService) RecentSearches(ctx context.Context) []string {
	if s.Recent == nil {
		return []string{}
	}
	return s.Recent.Load(ctx)
}

// Loading reports whether any lookup is in flight.
func (s *DashboardService) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight > 0
}

// Snapshot returns a copy of the render model.
func (s *DashboardService) Snapshot(ctx context.Context) model.Dashboard {
	s.mu.Lock()
	d := model.Dashboard{
		Forecast: make([]model.ForecastDay, len(s.forecast)),
		Loading:  s.inFlight > 0,
	}
	copy(d.Forecast, s.forecast)
	if s.current != nil {
		current := *s.current
		d.Current = &current
	}
	s.mu.Unlock()

	d.RecentSearches = s.RecentSearches(ctx)
	return d
}

var _ DashboardServiceInterface = (*DashboardService)(nil)
