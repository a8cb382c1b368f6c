// Package geocode resolves coordinates to place names for journey attribution.
package geocode

import (
	"context"

	"backend-recordpath/internal/shared/geo"
)

// Place is what a reverse lookup resolves a coordinate to.
type Place struct {
	Name        string `json:"name"`
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// Gateway looks up the place at a coordinate. A nil place with a nil error
// means the coordinate could not be resolved.
type Gateway interface {
	Lookup(ctx context.Context, c geo.Coordinate) (*Place, error)
}

// GatewayFunc adapts a function to a Gateway.
type GatewayFunc func(ctx context.Context, c geo.Coordinate) (*Place, error)

func (f GatewayFunc) Lookup(ctx context.Context, c geo.Coordinate) (*Place, error) {
	return f(ctx, c)
}
