package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakhrymubarak/skyglow-weather/internal/middleware"
	"github.com/fakhrymubarak/skyglow-weather/internal/model"
	"github.com/fakhrymubarak/skyglow-weather/internal/notify"
	"github.com/fakhrymubarak/skyglow-weather/internal/service"
	"github.com/fakhrymubarak/skyglow-weather/internal/suggestion"
)

// Mock service for testing
type mockDashboardService struct {
	err      error
	calls    []string
	selected []model.CitySuggestion
	coords   [][2]float64
	recent   []string
}

func (m *mockDashboardService) Init(ctx context.Context) error { return m.err }

func (m *mockDashboardService) Search(ctx context.Context, name string) error {
	m.calls = append(m.calls, "search:"+name)
	return m.err
}

func (m *mockDashboardService) SelectSuggestion(ctx context.Context, s model.CitySuggestion) error {
	m.selected = append(m.selected, s)
	return m.err
}

func (m *mockDashboardService) ReplayRecent(ctx context.Context, name string) error {
	m.calls = append(m.calls, "replay:"+name)
	return m.err
}

func (m *mockDashboardService) FetchByCoordinates(ctx context.Context, lat, lon float64) error {
	m.coords = append(m.coords, [2]float64{lat, lon})
	return m.err
}

func (m *mockDashboardService) RecentSearches(ctx context.Context) []string {
	return m.recent
}

func (m *mockDashboardService) Snapshot(ctx context.Context) model.Dashboard {
	return model.Dashboard{
		Current:        &model.CurrentConditions{Location: "London", Temperature: 16},
		Forecast:       []model.ForecastDay{},
		RecentSearches: m.recent,
	}
}

// Ensure mockDashboardService implements DashboardServiceInterface
var _ service.DashboardServiceInterface = (*mockDashboardService)(nil)

type mockSuggestions struct {
	inputs     []string
	dismissed  int
	candidates []model.CitySuggestion
}

func (m *mockSuggestions) Input(q string) { m.inputs = append(m.inputs, q) }
func (m *mockSuggestions) Dismiss()       { m.dismissed++ }

func (m *mockSuggestions) Select(i int) (model.CitySuggestion, error) {
	if i >= len(m.candidates) {
		return model.CitySuggestion{}, suggestion.ErrNoSuggestion
	}
	return m.candidates[i], nil
}

func (m *mockSuggestions) Snapshot() suggestion.Snapshot {
	return suggestion.Snapshot{State: suggestion.Showing, Visible: true, Suggestions: m.candidates}
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
	Message string          `json:"message"`
}

func newTestHandler() (*DashboardHandler, *mockDashboardService, *mockSuggestions, *notify.Queue) {
	middleware.ResetVisitors()
	svc := &mockDashboardService{recent: []string{"London"}}
	sugg := &mockSuggestions{candidates: []model.CitySuggestion{{Name: "Paris", Country: "FR", Lat: 48.85, Lon: 2.35}}}
	queue := notify.NewQueue(0)
	return NewDashboardHandler(svc, sugg, queue), svc, sugg, queue
}

func serve(t *testing.T, h *DashboardHandler, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	h.Routes().ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return rr, env
}

func TestDashboardHandler_Dashboard(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rr, env := serve(t, h, http.MethodGet, "/weather")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "Success", env.Message)
	var d model.Dashboard
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, "London", d.Current.Location)
	assert.Equal(t, []string{"London"}, d.RecentSearches)
}

func TestDashboardHandler_MethodNotAllowed(t *testing.T) {
	h, _, _, _ := newTestHandler()

	rr, env := serve(t, h, http.MethodPost, "/weather")

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodGet, rr.Header().Get("Allow"))
	require.NotNil(t, env.Error)
	assert.Equal(t, "Method not allowed", *env.Error)
}

func TestDashboardHandler_Search(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		serviceErr error
		wantStatus int
		wantCalls  []string
		wantError  string
	}{
		{
			name:       "Missing location parameter",
			target:     "/weather/search",
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing 'location' query parameter",
		},
		{
			name:       "Blank location is passed through",
			target:     "/weather/search?location=",
			wantStatus: http.StatusOK,
			wantCalls:  []string{"search:"},
		},
		{
			name:       "Successful search",
			target:     "/weather/search?location=Paris",
			wantStatus: http.StatusOK,
			wantCalls:  []string{"search:Paris"},
		},
		{
			name:       "Service error",
			target:     "/weather/search?location=Atlantis",
			serviceErr: service.ErrWeatherService,
			wantStatus: http.StatusInternalServerError,
			wantCalls:  []string{"search:Atlantis"},
			wantError:  "Failed to fetch weather data for this location",
		},
		{
			name:       "Superseded by a newer search",
			target:     "/weather/search?location=Oslo",
			serviceErr: service.ErrSuperseded,
			wantStatus: http.StatusOK,
			wantCalls:  []string{"search:Oslo"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, sugg, _ := newTestHandler()
			svc.err = tt.serviceErr

			rr, env := serve(t, h, http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, svc.calls)
			if tt.wantError != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.wantError, *env.Error)
			} else {
				assert.Nil(t, env.Error)
				assert.Equal(t, 1, sugg.dismissed, "a manual search hides the dropdown")
			}
		})
	}
}

func TestDashboardHandler_Coordinates(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantCoords [][2]float64
	}{
		{"Valid", "/weather/coordinates?lat=51.5&lon=-0.12", http.StatusOK, [][2]float64{{51.5, -0.12}}},
		{"Missing lon", "/weather/coordinates?lat=51.5", http.StatusBadRequest, nil},
		{"Not a number", "/weather/coordinates?lat=abc&lon=1", http.StatusBadRequest, nil},
		{"Latitude out of range", "/weather/coordinates?lat=91&lon=0", http.StatusBadRequest, nil},
		{"Longitude out of range", "/weather/coordinates?lat=0&lon=-180.5", http.StatusBadRequest, nil},
		{"Bounds are inclusive", "/weather/coordinates?lat=-90&lon=180", http.StatusOK, [][2]float64{{-90, 180}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, _, _ := newTestHandler()

			rr, _ := serve(t, h, http.MethodGet, tt.target)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCoords, svc.coords)
		})
	}
}

func TestDashboardHandler_CoordinatesFailure(t *testing.T) {
	h, svc, _, _ := newTestHandler()
	svc.err = errors.New("boom")

	rr, env := serve(t, h, http.MethodGet, "/weather/coordinates?lat=1&lon=2")

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Failed to fetch weather data", *env.Error)
}

func TestDashboardHandler_SuggestionFlow(t *testing.T) {
	h, svc, sugg, _ := newTestHandler()

	rr, env := serve(t, h, http.MethodPost, "/suggestions/input?q=par")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"par"}, sugg.inputs)
	var snap suggestion.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.True(t, snap.Visible)

	rr, env = serve(t, h, http.MethodGet, "/suggestions")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, string(env.Data), `"state":"showing"`)

	rr, _ = serve(t, h, http.MethodPost, "/suggestions/select?index=0")
	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, svc.selected, 1)
	assert.Equal(t, "Paris", svc.selected[0].Name)

	rr, _ = serve(t, h, http.MethodPost, "/suggestions/dismiss")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, sugg.dismissed)
}

func TestDashboardHandler_EveryKeystrokeReachesSuggestions(t *testing.T) {
	h, _, sugg, _ := newTestHandler()
	typed := []string{"p", "pa", "par", "pari", "paris", "paris,", "paris, f"}

	for _, q := range typed {
		rr, _ := serve(t, h, http.MethodPost, "/suggestions/input?q="+url.QueryEscape(q))
		require.Equal(t, http.StatusOK, rr.Code, "keystroke %q", q)
	}

	assert.Equal(t, typed, sugg.inputs)
}

func TestDashboardHandler_LookupsAreRateLimited(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
	}{
		{"Search", http.MethodGet, "/weather/search?location=City%d"},
		{"Coordinates", http.MethodGet, "/weather/coordinates?lat=1&lon=%d"},
		{"Replay", http.MethodPost, "/recent/replay?location=City%d"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _, _ := newTestHandler()

			// config_test.yaml allows a global burst of 4 per client.
			for i := 0; i < 4; i++ {
				rr, _ := serve(t, h, tt.method, fmt.Sprintf(tt.target, i))
				if tt.name == "Coordinates" && i >= 2 {
					// Without a location every coordinate lookup shares one per-param bucket of 2.
					assert.Equal(t, http.StatusTooManyRequests, rr.Code, "request %d", i+1)
					continue
				}
				require.Equal(t, http.StatusOK, rr.Code, "request %d", i+1)
			}

			rr, env := serve(t, h, tt.method, fmt.Sprintf(tt.target, 9))
			assert.Equal(t, http.StatusTooManyRequests, rr.Code)
			require.NotNil(t, env.Error)
		})
	}
}

func TestDashboardHandler_SuggestionSelectErrors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"Missing index", "/suggestions/select", http.StatusBadRequest},
		{"Negative index", "/suggestions/select?index=-1", http.StatusBadRequest},
		{"No suggestion there", "/suggestions/select?index=3", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, svc, _, _ := newTestHandler()

			rr, _ := serve(t, h, http.MethodPost, tt.target)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Empty(t, svc.selected)
		})
	}
}

func TestDashboardHandler_Recent(t *testing.T) {
	h, svc, _, _ := newTestHandler()

	rr, env := serve(t, h, http.MethodGet, "/recent")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["London"]`, string(env.Data))

	rr, _ = serve(t, h, http.MethodPost, "/recent/replay?location=London")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"replay:London"}, svc.calls)

	rr, _ = serve(t, h, http.MethodPost, "/recent/replay?location=%20")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDashboardHandler_NotificationsDrain(t *testing.T) {
	h, _, _, queue := newTestHandler()
	queue.Notify(notify.Error("Failed to fetch weather data"))

	_, env := serve(t, h, http.MethodGet, "/notifications")
	var items []notify.Notification
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Failed to fetch weather data", items[0].Description)

	_, env = serve(t, h, http.MethodGet, "/notifications")
	items = nil
	if len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, &items))
	}
	assert.Empty(t, items)
}
