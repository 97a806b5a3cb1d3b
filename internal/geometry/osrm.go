package geometry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"routeopt/internal/model"
)

// Enricher fetches road-following polylines for display. It is strictly
// best-effort: every failure, timeout, or malformed response degrades to a
// straight two-point segment, and no failure ever aborts a solve.
type Enricher struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type osrmRouteResponse struct {
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// NewEnricher creates an enricher against an OSRM route endpoint. Requests
// are rate limited to stay under the public demo server's thresholds.
func NewEnricher(baseURL string) *Enricher {
	if baseURL == "" {
		baseURL = "https://router.project-osrm.org"
	}
	return &Enricher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 2 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 2),
	}
}

// Enrich returns one polyline per leg of the route's stop sequence.
func (e *Enricher) Enrich(ctx context.Context, stops []int, locs []model.Location) [][]model.LatLng {
	legs := make([][]model.LatLng, 0, len(stops)-1)
	for k := 1; k < len(stops); k++ {
		from, to := locs[stops[k-1]], locs[stops[k]]
		legs = append(legs, e.leg(ctx, from, to))
	}
	return legs
}

func (e *Enricher) leg(ctx context.Context, from, to model.Location) []model.LatLng {
	straight := []model.LatLng{{Lat: from.Lat, Lng: from.Lng}, {Lat: to.Lat, Lng: to.Lng}}

	if err := e.limiter.Wait(ctx); err != nil {
		return straight
	}
	queryURL := fmt.Sprintf("%s/route/v1/driving/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson",
		e.baseURL, from.Lng, from.Lat, to.Lng, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return straight
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return straight
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return straight
	}
	var rr osrmRouteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return straight
	}
	if len(rr.Routes) == 0 || len(rr.Routes[0].Geometry.Coordinates) == 0 {
		return straight
	}
	// GeoJSON is [lng, lat]; display order is lat first.
	coords := rr.Routes[0].Geometry.Coordinates
	line := make([]model.LatLng, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return straight
		}
		line = append(line, model.LatLng{Lat: c[1], Lng: c[0]})
	}
	return line
}
