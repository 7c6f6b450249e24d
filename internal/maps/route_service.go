// README: Optional Google Maps travel estimate, used to enrich booking
// responses with a driving ETA. Matching and pricing never depend on it;
// they stay on the deterministic haversine model.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"hubpool/internal/types"
)

type RouteService struct {
	client *maps.Client
}

func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// EstimateTravel returns the driving duration and distance in kilometres
// between two points.
func (s *RouteService) EstimateTravel(ctx context.Context, from, to types.Point) (time.Duration, float64, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", from.Lat, from.Lng),
		Destination: fmt.Sprintf("%f,%f", to.Lat, to.Lng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return 0, 0, fmt.Errorf("maps api error: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, 0, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return leg.Duration, float64(leg.Distance.Meters) / 1000.0, nil
}
