package model

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StatusSuccess is the provider's "cod" value for a successful lookup.
const StatusSuccess StatusCode = 200

// StatusCode is the provider's "cod" field. The current-weather endpoint sends it as
// a number on success and as a string on errors; the forecast endpoint always sends a string.
type StatusCode int

func (c *StatusCode) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*c = StatusCode(n)
	return nil
}

// Message is the provider's error "message" field, which is a string on
// errors and occasionally a number on forecast successes.
type Message string

func (m *Message) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*m = Message(s)
		return nil
	}
	*m = Message(strings.Trim(string(b), `"`))
	return nil
}

// WeatherCondition is one element of the provider's "weather" array.
type WeatherCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// OpenWeatherMapResponse is the /data/2.5/weather payload.
type OpenWeatherMapResponse struct {
	Cod     StatusCode `json:"cod"`
	Message Message    `json:"message"`
	Name    string     `json:"name"`
	Sys     struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		TempMin   float64 `json:"temp_min"`
		TempMax   float64 `json:"temp_max"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []WeatherCondition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
}

// ForecastEntry is one 3-hour slot of the forecast feed.
type ForecastEntry struct {
	Dt    int64  `json:"dt"`
	DtTxt string `json:"dt_txt"`
	Main  struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []WeatherCondition `json:"weather"`
}

// OpenWeatherMapForecastResponse is the /data/2.5/forecast payload.
type OpenWeatherMapForecastResponse struct {
	Cod     StatusCode      `json:"cod"`
	Message Message         `json:"message"`
	List    []ForecastEntry `json:"list"`
}

// GeoPlace is one element of the /geo/1.0/direct response.
type GeoPlace struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// RawWeather pairs the two provider records a single lookup produces.
type RawWeather struct {
	Current  *OpenWeatherMapResponse
	Forecast *OpenWeatherMapForecastResponse
}
