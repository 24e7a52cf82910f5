// Package mercator converts between geographic coordinates and normalized
// Web Mercator world coordinates, and formats coordinates as
// degree/minute/second text.
package mercator

import (
	"math"

	"github.com/jaennil/guide_helper/backend/viewer/pkg/location"
)

const (
	rad2deg = 180 / math.Pi
	deg2rad = math.Pi / 180
)

// Coordinates is a geographic position in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func Of(latitude, longitude float64) Coordinates {
	return Coordinates{Latitude: latitude, Longitude: longitude}
}

// ToWorld projects c into [0,1]x[0,1] world space.
func ToWorld(c Coordinates) (x, y float64) {
	lng := c.Longitude * deg2rad
	lat := c.Latitude * deg2rad

	x = (math.Pi + lng) / (2 * math.Pi)
	y = (math.Pi - math.Log(math.Tan(math.Pi/4+lat/2))) / (2 * math.Pi)
	return x, y
}

// FromWorld is the inverse of ToWorld. x and y are first snapped to the
// location quantization grid so the result does not jitter with floating
// point noise.
func FromWorld(x, y float64) Coordinates {
	x = snap(x)
	y = snap(y)

	lng := 2 * math.Pi * (x - 0.5)
	lat := 2*math.Atan(math.Exp(math.Pi-2*math.Pi*y)) - 0.5*math.Pi

	return Coordinates{
		Latitude:  lat * rad2deg,
		Longitude: lng * rad2deg,
	}
}

func snap(v float64) float64 {
	const dim = location.GridSize
	n := math.Min(math.Max(math.Floor(v*dim), 0), dim-1)
	return n / dim
}
