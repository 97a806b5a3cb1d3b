package geometry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"routeopt/internal/model"
)

var legLocs = []model.Location{
	{ID: 0, Lat: 55.43, Lng: 37.54},
	{ID: 1, Lat: 55.74, Lng: 37.56},
	{ID: 2, Lat: 55.80, Lng: 37.53},
}

func TestEnrichRoadPolyline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"routes":[{"geometry":{"coordinates":[[37.54,55.43],[37.55,55.60],[37.56,55.74]]}}]}`)
	}))
	defer srv.Close()

	legs := NewEnricher(srv.URL).Enrich(context.Background(), []int{0, 1, 0}, legLocs)
	if len(legs) != 2 {
		t.Fatalf("legs: got %d, want 2", len(legs))
	}
	if len(legs[0]) != 3 {
		t.Fatalf("polyline points: got %d, want 3", len(legs[0]))
	}
	// GeoJSON [lng,lat] converted to lat-first
	if legs[0][1] != (model.LatLng{Lat: 55.60, Lng: 37.55}) {
		t.Fatalf("coordinate order: got %+v", legs[0][1])
	}
}

func TestEnrichStraightLineOnServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	legs := NewEnricher(srv.URL).Enrich(context.Background(), []int{0, 2, 0}, legLocs)
	if len(legs) != 2 {
		t.Fatalf("legs: got %d", len(legs))
	}
	want := []model.LatLng{{Lat: 55.43, Lng: 37.54}, {Lat: 55.80, Lng: 37.53}}
	if len(legs[0]) != 2 || legs[0][0] != want[0] || legs[0][1] != want[1] {
		t.Fatalf("straight fallback: got %+v", legs[0])
	}
}

func TestEnrichStraightLineOnBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"routes":[]}`)
	}))
	defer srv.Close()

	legs := NewEnricher(srv.URL).Enrich(context.Background(), []int{0, 1}, legLocs)
	if len(legs) != 1 || len(legs[0]) != 2 {
		t.Fatalf("empty routes must degrade to a 2-point segment: %+v", legs)
	}
}
