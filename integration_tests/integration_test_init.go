package integrationtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/alicebob/miniredis/v2"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
	"github.com/fakhrymubarak/skyglow-weather/internal/geolocation"
	"github.com/fakhrymubarak/skyglow-weather/internal/handler"
	"github.com/fakhrymubarak/skyglow-weather/internal/notify"
	"github.com/fakhrymubarak/skyglow-weather/internal/recent"
	"github.com/fakhrymubarak/skyglow-weather/internal/redis"
	"github.com/fakhrymubarak/skyglow-weather/internal/repository"
	"github.com/fakhrymubarak/skyglow-weather/internal/service"
	"github.com/fakhrymubarak/skyglow-weather/internal/suggestion"
)

const testAPIKey = "test_api_key"

func createMockRedisServer() *miniredis.Miniredis {
	mr, err := miniredis.Run()
	if err != nil {
		panic(err)
	}
	return mr
}

// mockOWM stands in for the weather and geocoding endpoints of OpenWeatherMap.
type mockOWM struct {
	*httptest.Server

	mu           sync.Mutex
	geocodeCalls []string
}

func (m *mockOWM) GeocodeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.geocodeCalls...)
}

func (m *mockOWM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geocodeCalls = nil
}

type city struct {
	name    string
	country string
	lat     float64
	lon     float64
	temp    float64
}

var cities = []city{
	{"London", "GB", 51.5073, -0.1276, 15.6},
	{"Paris", "FR", 48.8566, 2.3522, 10.4},
}

func findCity(q map[string][]string) (city, bool) {
	name := ""
	if v := q["q"]; len(v) > 0 {
		name = v[0]
	}
	lat, lon := "", ""
	if v := q["lat"]; len(v) > 0 {
		lat = v[0]
	}
	if v := q["lon"]; len(v) > 0 {
		lon = v[0]
	}
	for _, c := range cities {
		if strings.EqualFold(c.name, name) {
			return c, true
		}
		if lat != "" && lat == formatCoord(c.lat) && lon == formatCoord(c.lon) {
			return c, true
		}
	}
	return city{}, false
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func newMockOWM() *mockOWM {
	m := &mockOWM{}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		query := r.URL.Query()
		if query.Get("appid") != testAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"cod":401,"message":"Invalid API key"}`))
			return
		}

		switch {
		case strings.HasSuffix(r.URL.Path, "/direct"):
			m.mu.Lock()
			m.geocodeCalls = append(m.geocodeCalls, query.Get("q"))
			m.mu.Unlock()
			var places []map[string]interface{}
			for _, c := range cities {
				if strings.HasPrefix(strings.ToLower(c.name), strings.ToLower(query.Get("q"))) {
					places = append(places, map[string]interface{}{"name": c.name, "country": c.country, "lat": c.lat, "lon": c.lon})
				}
			}
			if places == nil {
				places = []map[string]interface{}{}
			}
			_ = json.NewEncoder(w).Encode(places)

		case strings.HasSuffix(r.URL.Path, "/weather"):
			c, ok := findCity(query)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"cod":        200,
				"name":       c.name,
				"sys":        map[string]string{"country": c.country},
				"main":       map[string]float64{"temp": c.temp, "feels_like": c.temp - 1, "humidity": 70},
				"weather":    []map[string]string{{"main": "Clouds", "description": "overcast clouds", "icon": "04d"}},
				"wind":       map[string]float64{"speed": 5},
				"visibility": 10000,
			})

		case strings.HasSuffix(r.URL.Path, "/forecast"):
			c, ok := findCity(query)
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"cod":"404","message":"city not found"}`))
				return
			}
			list := []map[string]interface{}{}
			for day := 1; day <= 6; day++ {
				for _, hour := range []string{"09:00:00", "12:00:00", "15:00:00"} {
					list = append(list, map[string]interface{}{
						"dt_txt":  fmt.Sprintf("2024-03-%02d %s", day, hour),
						"main":    map[string]float64{"temp_max": c.temp + float64(day), "temp_min": c.temp - float64(day)},
						"weather": []map[string]string{{"main": "Rain", "icon": "10d"}},
					})
				}
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"cod": "200", "list": list})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return m
}

// testApp is one dashboard session wired against the mocks.
type testApp struct {
	server      *httptest.Server
	dashboard   *service.DashboardService
	suggestions *suggestion.Controller
}

func (a *testApp) Close() {
	a.server.Close()
	a.suggestions.Close()
}

func setupIntegrationTestServer() *testApp {
	repoCfg := repository.ConfigFromEnv()
	rps, burst := config.GetSuggestionRateConfig()
	geocoder := repository.NewRateLimitedGeocoder(repository.NewGeocodingRepository(repoCfg), rps, burst)

	queue := notify.NewQueue(0)
	store := recent.NewStore(redis.NewKV(nil), config.GetRecentKey(), config.GetRecentCapacity())
	dashboard := service.NewDashboardService(repository.NewWeatherRepository(repoCfg), store, geolocation.FromConfig(), notify.Log{Next: queue})
	suggestions := suggestion.NewController(geocoder,
		suggestion.WithDelay(config.GetSuggestionDebounce()),
		suggestion.WithLimit(config.GetSuggestionLimit()),
	)

	h := handler.NewDashboardHandler(dashboard, suggestions, queue)
	return &testApp{
		server:      httptest.NewServer(h.Routes()),
		dashboard:   dashboard,
		suggestions: suggestions,
	}
}
