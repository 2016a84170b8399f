// Package geolocation stands in for the device position capability.
package geolocation

import (
	"context"
	"errors"

	"github.com/fakhrymubarak/skyglow-weather/internal/config"
)

var (
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrUnavailable      = errors.New("geolocation unavailable")
)

// Coordinates is a device position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Locator yields the device position or a permission/availability failure.
type Locator interface {
	Locate(ctx context.Context) (Coordinates, error)
}

// Static always reports the same position, or ErrPermissionDenied when disabled.
type Static struct {
	Coords  Coordinates
	Enabled bool
}

func (s Static) Locate(ctx context.Context) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	if !s.Enabled {
		return Coordinates{}, ErrPermissionDenied
	}
	return s.Coords, nil
}

// Unavailable is a Locator for hosts with no position capability.
type Unavailable struct{}

func (Unavailable) Locate(context.Context) (Coordinates, error) {
	return Coordinates{}, ErrUnavailable
}

// FromConfig builds the Locator described by the geolocation section of config.yaml.
func FromConfig() Locator {
	lat, lon, enabled := config.GetGeolocation()
	if !enabled {
		return Unavailable{}
	}
	return Static{Coords: Coordinates{Lat: lat, Lon: lon}, Enabled: true}
}
