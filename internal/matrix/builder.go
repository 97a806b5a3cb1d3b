package matrix

import (
	"context"
	"fmt"
	"log"

	"routeopt/internal/metrics"
	"routeopt/internal/model"
)

// Builder produces the travel matrices for a solve. It asks the routing
// service first and degrades to the deterministic haversine estimate on any
// service failure. A cache, when configured, short-circuits repeat builds
// for the same location set.
type Builder struct {
	osrm  *OSRMClient
	cache Cache
}

// Cache stores built matrices keyed by the ordered location set.
type Cache interface {
	Get(ctx context.Context, locs []model.Location) (*Matrices, bool)
	Put(ctx context.Context, locs []model.Location, m *Matrices)
}

// NewBuilder wires a builder. osrm may be nil to force the fallback path;
// cache may be nil to disable caching.
func NewBuilder(osrm *OSRMClient, cache Cache) *Builder {
	return &Builder{osrm: osrm, cache: cache}
}

// Build returns the matrix pair for the ordered location list. The only hard
// failure is an empty location list; a broken or slow routing service is
// absorbed by the fallback.
func (b *Builder) Build(ctx context.Context, locs []model.Location) (*Matrices, error) {
	if len(locs) == 0 {
		return nil, fmt.Errorf("build matrices: no locations")
	}

	if b.cache != nil {
		if m, ok := b.cache.Get(ctx, locs); ok {
			return m, nil
		}
	}

	var m *Matrices
	if b.osrm != nil {
		var err error
		m, err = b.osrm.Table(ctx, locs)
		if err != nil {
			log.Printf("matrix build: service unavailable, using haversine fallback: %v", err)
			m = nil
		}
	}
	if m == nil {
		m = Fallback(locs)
	}
	metrics.MatrixBuilds.WithLabelValues(m.Source).Inc()

	if b.cache != nil {
		b.cache.Put(ctx, locs, m)
	}
	return m, nil
}
