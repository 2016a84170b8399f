package model

import "strings"

// Condition is the provider's high-level category from weather[0].main.
type Condition string

const (
	ConditionClear  Condition = "Clear"
	ConditionClouds Condition = "Clouds"
	ConditionRain   Condition = "Rain"
	ConditionSnow   Condition = "Snow"
)

// Icon names the glyph a renderer draws for a condition.
type Icon string

const (
	IconSun       Icon = "sun"
	IconCloud     Icon = "cloud"
	IconCloudRain Icon = "cloud-rain"
	IconCloudSnow Icon = "cloud-snow"
)

// IconFor maps a condition to its glyph. Unknown categories fall back to the sun.
func IconFor(c Condition) Icon {
	switch strings.ToLower(string(c)) {
	case "clouds":
		return IconCloud
	case "rain":
		return IconCloudRain
	case "snow":
		return IconCloudSnow
	default:
		return IconSun
	}
}

// CurrentConditions is the display model for the current weather card.
type CurrentConditions struct {
	Location    string    `json:"location"`
	Country     string    `json:"country"`
	Temperature int       `json:"temperature"`
	Condition   Condition `json:"condition"`
	Description string    `json:"description"`
	Humidity    int       `json:"humidity"`
	WindSpeed   int       `json:"windSpeed"`  // km/h
	Visibility  int       `json:"visibility"` // km
	FeelsLike   int       `json:"feelsLike"`
	IconCode    string    `json:"iconCode"`
	Icon        Icon      `json:"icon"`
}

// ForecastDay is one day of the 5-day forecast strip.
type ForecastDay struct {
	Date      string    `json:"date"` // YYYY-MM-DD
	Day       string    `json:"day"`
	High      int       `json:"high"`
	Low       int       `json:"low"`
	Condition Condition `json:"condition"`
	IconCode  string    `json:"iconCode"`
	Icon      Icon      `json:"icon"`
}

// Weather is the normalized result of one lookup.
type Weather struct {
	Current  CurrentConditions `json:"current"`
	Forecast []ForecastDay     `json:"forecast"`
}

// CitySuggestion is an autocomplete candidate.
type CitySuggestion struct {
	Name    string  `json:"name"`
	Country string  `json:"country"`
	State   string  `json:"state,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Label is the "name, country" string recorded into recent searches.
func (s CitySuggestion) Label() string {
	return s.Name + ", " + s.Country
}

// Dashboard is the render model a UI polls.
type Dashboard struct {
	Current        *CurrentConditions `json:"current"`
	Forecast       []ForecastDay      `json:"forecast"`
	Loading        bool               `json:"loading"`
	RecentSearches []string           `json:"recentSearches"`
}
