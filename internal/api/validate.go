package api

import (
	"fmt"

	"routeopt/internal/model"
)

// Caller-facing bounds on the search budget (seconds).
const (
	minSearchTimeSec     = 1
	maxSearchTimeSec     = 60
	defaultSearchTimeSec = 10
)

// validateSolveRequest normalizes the request in place.
func validateSolveRequest(req *model.SolveRequest) error {
	if len(req.VehicleIDs) == 0 {
		return fmt.Errorf("vehicleIds must be non-empty")
	}
	seen := map[string]bool{}
	for _, id := range req.VehicleIDs {
		if id == "" {
			return fmt.Errorf("vehicleIds must not contain empty ids")
		}
		if seen[id] {
			return fmt.Errorf("duplicate vehicle id %q", id)
		}
		seen[id] = true
	}
	if req.MaxSearchTimeSec == 0 {
		req.MaxSearchTimeSec = defaultSearchTimeSec
	}
	if req.MaxSearchTimeSec < minSearchTimeSec || req.MaxSearchTimeSec > maxSearchTimeSec {
		return fmt.Errorf("maxSearchTimeSec must be in [%d,%d]", minSearchTimeSec, maxSearchTimeSec)
	}
	if req.DropPenalty < 0 {
		return fmt.Errorf("dropPenalty must be >= 0")
	}
	return nil
}
