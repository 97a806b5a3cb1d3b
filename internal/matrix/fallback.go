package matrix

import (
	"math"

	"routeopt/internal/model"
)

// Geometric estimate parameters: great-circle distance inflated by a road
// circuity factor, travel time at a fixed urban average speed.
const (
	earthRadiusM    = 6371000.0
	circuityFactor  = 1.4
	averageSpeedKmh = 30.0
)

// Fallback builds both matrices from the haversine estimate. It performs no
// I/O and is fully deterministic, so it can stand in for the routing service
// in tests and outages alike.
func Fallback(locs []model.Location) *Matrices {
	n := len(locs)
	timeMin := make([][]int, n)
	distM := make([][]int, n)
	for i := range locs {
		timeMin[i] = make([]int, n)
		distM[i] = make([]int, n)
		for j := range locs {
			if i == j {
				continue
			}
			d := Haversine(locs[i].Lat, locs[i].Lng, locs[j].Lat, locs[j].Lng)
			roadM := int(d * circuityFactor)
			travel := int(float64(roadM) / 1000 / averageSpeedKmh * 60)
			if travel < 1 {
				travel = 1
			}
			distM[i][j] = roadM
			timeMin[i][j] = travel
		}
	}
	return &Matrices{TimeMin: timeMin, DistM: distM, Source: SourceHaversine}
}

// Haversine returns the great-circle distance between two points in meters.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}
