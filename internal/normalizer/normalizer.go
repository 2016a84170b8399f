// Package normalizer maps raw OpenWeatherMap records into the dashboard's display model.
package normalizer

import (
	"errors"
	"math"
	"time"

	"github.com/fakhrymubarak/skyglow-weather/internal/model"
)

// MaxForecastDays caps the forecast strip.
const MaxForecastDays = 5

const dtTxtLayout = "2006-01-02 15:04:05"

// ErrMissingRecord is returned when either provider record is absent.
var ErrMissingRecord = errors.New("missing weather record")

// InvalidLocationError reports a current-conditions record whose status is not success.
type InvalidLocationError struct {
	Code    model.StatusCode
	Message string
}

func (e *InvalidLocationError) Error() string {
	if e.Message == "" {
		return "invalid location"
	}
	return e.Message
}

// Normalize builds the current conditions and the daily forecast from one lookup.
func Normalize(current *model.OpenWeatherMapResponse, forecast *model.OpenWeatherMapForecastResponse) (*model.Weather, error) {
	if current == nil || forecast == nil {
		return nil, ErrMissingRecord
	}
	if current.Cod != model.StatusSuccess {
		return nil, &InvalidLocationError{Code: current.Cod, Message: string(current.Message)}
	}

	return &model.Weather{
		Current:  normalizeCurrent(current),
		Forecast: DailyForecast(forecast.List),
	}, nil
}

func normalizeCurrent(c *model.OpenWeatherMapResponse) model.CurrentConditions {
	var cond model.WeatherCondition
	if len(c.Weather) > 0 {
		cond = c.Weather[0]
	}
	return model.CurrentConditions{
		Location:    c.Name,
		Country:     c.Sys.Country,
		Temperature: Round(c.Main.Temp),
		Condition:   model.Condition(cond.Main),
		Description: cond.Description,
		Humidity:    c.Main.Humidity,
		WindSpeed:   Round(c.Wind.Speed * 3.6),
		Visibility:  Round(c.Visibility / 1000),
		FeelsLike:   Round(c.Main.FeelsLike),
		IconCode:    cond.Icon,
		Icon:        model.IconFor(model.Condition(cond.Main)),
	}
}

// DailyForecast keeps the first noon-aligned entry of each calendar date, in input
// order, and truncates to MaxForecastDays. Dates without a noon entry are skipped.
func DailyForecast(entries []model.ForecastEntry) []model.ForecastDay {
	days := make([]model.ForecastDay, 0, MaxForecastDays)
	seen := make(map[string]struct{})

	for _, e := range entries {
		ts, ok := noonTime(e)
		if !ok {
			continue
		}
		date := ts.Format(time.DateOnly)
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}

		var cond model.WeatherCondition
		if len(e.Weather) > 0 {
			cond = e.Weather[0]
		}
		days = append(days, model.ForecastDay{
			Date:      date,
			Day:       ts.Format("Mon"),
			High:      Round(e.Main.TempMax),
			Low:       Round(e.Main.TempMin),
			Condition: model.Condition(cond.Main),
			IconCode:  cond.Icon,
			Icon:      model.IconFor(model.Condition(cond.Main)),
		})
	}

	if len(days) > MaxForecastDays {
		days = days[:MaxForecastDays]
	}
	return days
}

// noonTime returns the entry's local timestamp when its dt_txt reads 12:00:00.
func noonTime(e model.ForecastEntry) (time.Time, bool) {
	ts, err := time.Parse(dtTxtLayout, e.DtTxt)
	if err != nil {
		return time.Time{}, false
	}
	if ts.Hour() != 12 || ts.Minute() != 0 || ts.Second() != 0 {
		return time.Time{}, false
	}
	return ts, true
}

// Round rounds to the nearest integer with halves going up, so -2.5 becomes -2.
func Round(v float64) int {
	return int(math.Floor(v + 0.5))
}
