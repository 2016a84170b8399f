package config

import (
	"flag"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var once sync.Once
var logger *zap.SugaredLogger
var loggerOnce sync.Once

// isTestRun returns true if the current process is a Go test binary.
func isTestRun() bool {
	return flag.Lookup("test.v") != nil || filepath.Ext(os.Args[0]) == ".test"
}

func initConfig() {
	once.Do(func() {
		setDefaults()

		root, err := getProjectRoot()
		if err != nil {
			GetLogger().Errorw("Error finding project root", "error", err)
		}
		viper.SetConfigType("yaml")

		viper.SetConfigName("config")
		viper.AddConfigPath(root)
		if err = viper.ReadInConfig(); err != nil {
			GetLogger().Errorw("Error reading config file", "error", err)
		}

		if isTestRun() {
			viper.SetConfigName("config_test")
			viper.AddConfigPath(root)
			if err = viper.MergeInConfig(); err != nil {
				GetLogger().Errorw("Error reading test config file", "error", err)
			}
		}
	})
}

func setDefaults() {
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("openweathermap.api_url", "https://api.openweathermap.org/data/2.5")
	viper.SetDefault("openweathermap.geo_url", "https://api.openweathermap.org/geo/1.0")
	viper.SetDefault("openweathermap.timeout", "10s")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("recent.backend", "memory")
	viper.SetDefault("recent.key", "recentWeatherSearches")
	viper.SetDefault("recent.capacity", 5)
	viper.SetDefault("recent.sqlite_path", "recent_searches.db")
	viper.SetDefault("suggestion.debounce", "300ms")
	viper.SetDefault("suggestion.limit", 5)
	viper.SetDefault("dashboard.default_city", "London")
}

func getProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// getDuration parses a duration key, falling back to def when unset or invalid.
func getDuration(key string, def time.Duration) time.Duration {
	initConfig()
	durStr := viper.GetString(key)
	if durStr == "" {
		return def
	}
	dur, err := time.ParseDuration(durStr)
	if err != nil {
		GetLogger().Warnw("Invalid duration in config", "key", key, "value", durStr, "error", err)
		return def
	}
	return dur
}

// GetOpenWeatherApiUrl returns the base URL of the current/forecast endpoints.
func GetOpenWeatherApiUrl() string {
	initConfig()
	return viper.GetString("openweathermap.api_url")
}

// GetOpenWeatherGeoUrl returns the base URL of the geocoding endpoints.
func GetOpenWeatherGeoUrl() string {
	initConfig()
	return viper.GetString("openweathermap.geo_url")
}

func GetOpenWeatherMapAPIKey() string {
	_ = godotenv.Load()
	return os.Getenv("OPENWEATHERMAP_API_KEY")
}

func GetOpenWeatherTimeout() time.Duration {
	return getDuration("openweathermap.timeout", 10*time.Second)
}

func GetRedisAddr() string {
	initConfig()
	return viper.GetString("redis.addr")
}

func GetServerPort() string {
	initConfig()
	return viper.GetString("server.port")
}

// GetServerTimeoutDuration returns server.<key> as a duration, defaulting to def.
func GetServerTimeoutDuration(key string, def time.Duration) time.Duration {
	return getDuration("server."+key, def)
}

// GetRecentBackend returns the persistence backend for recent searches: redis, sqlite or memory.
func GetRecentBackend() string {
	initConfig()
	return viper.GetString("recent.backend")
}

func GetRecentKey() string {
	initConfig()
	return viper.GetString("recent.key")
}

func GetRecentCapacity() int {
	initConfig()
	capacity := viper.GetInt("recent.capacity")
	if capacity <= 0 {
		return 5
	}
	return capacity
}

func GetRecentSQLitePath() string {
	initConfig()
	return viper.GetString("recent.sqlite_path")
}

// GetSuggestionDebounce returns the quiet period before a suggestion lookup fires.
func GetSuggestionDebounce() time.Duration {
	return getDuration("suggestion.debounce", 300*time.Millisecond)
}

func GetSuggestionLimit() int {
	initConfig()
	limit := viper.GetInt("suggestion.limit")
	if limit <= 0 {
		return 5
	}
	return limit
}

// GetSuggestionRateConfig returns the outbound geocoding throttle. Defaults to 2 rps, burst 5.
func GetSuggestionRateConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("suggestion.rate")
	if rate == 0 {
		rate = 2
	}
	burst = viper.GetInt("suggestion.burst")
	if burst == 0 {
		burst = 5
	}
	return
}

func GetDefaultCity() string {
	initConfig()
	city := viper.GetString("dashboard.default_city")
	if city == "" {
		return "London"
	}
	return city
}

// GetGeolocation returns the configured device position and whether one is available.
func GetGeolocation() (lat, lon float64, enabled bool) {
	initConfig()
	return viper.GetFloat64("geolocation.lat"), viper.GetFloat64("geolocation.lon"), viper.GetBool("geolocation.enabled")
}

// ReloadConfigForTest resets the config singleton and reloads Viper config. Use only in tests.
func ReloadConfigForTest() {
	once = sync.Once{}
	initConfig()
}

func GetLogger() *zap.SugaredLogger {
	loggerOnce.Do(func() {
		l, err := zap.NewDevelopment()
		if err != nil {
			panic(err)
		}
		logger = l.Sugar()
	})
	return logger
}

// GetRateLimiterCleanupTimeout returns the rate limiter cleanup timeout as a time.Duration.
// Defaults to 3m if not set or invalid.
func GetRateLimiterCleanupTimeout() time.Duration {
	return getDuration("rate_limiter.cleanup_timeout", 3*time.Minute)
}

// GetGlobalRateLimiterConfig returns the per-minute rate and burst for the global rate limiter.
func GetGlobalRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.global.rate")
	if rate == 0 {
		rate = 120
	}
	burst = viper.GetInt("rate_limiter.global.burst")
	if burst == 0 {
		burst = 30
	}
	return
}

// GetParamRateLimiterConfig returns the per-minute rate and burst for the param rate limiter.
func GetParamRateLimiterConfig() (rate float64, burst int) {
	initConfig()
	rate = viper.GetFloat64("rate_limiter.param.rate")
	if rate == 0 {
		rate = 60
	}
	burst = viper.GetInt("rate_limiter.param.burst")
	if burst == 0 {
		burst = 10
	}
	return
}
