package ports

import (
	"context"
	"swelter/internal/types"
)

// WeatherProvider fetches a fresh observation for a place query.
// Implementations MUST bound the call by the context deadline and return a
// types.UpstreamError on a non-success provider response.
type WeatherProvider interface {
	Fetch(ctx context.Context, location string) (types.Observation, error)
}
