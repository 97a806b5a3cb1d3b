package solver

import (
	"fmt"

	"routeopt/internal/matrix"
	"routeopt/internal/model"
)

const (
	// HorizonMin bounds a vehicle's cumulative time to one day.
	HorizonMin = 1440
	// DefaultDropPenalty is the objective cost of skipping one stop. It must
	// dwarf any legitimate transit cost so stops are only dropped when no
	// feasible insertion exists.
	DefaultDropPenalty = 100000
)

// Problem is the immutable VRPTW instance handed to the search engine:
// locations (index 0 the depot), the selected fleet, the matrix pair, and
// the drop penalty. It is constructed once per solve and never mutated
// during search.
type Problem struct {
	Locations   []model.Location
	Vehicles    []model.Vehicle
	TimeMin     [][]int
	DistM       [][]int
	DropPenalty int

	// Unservable lists non-depot locations whose demand exceeds every
	// selected vehicle's capacity. They are excluded from search up front
	// and reported as dropped with a distinct reason.
	Unservable []int

	servable []int
	depot    model.TimeWindow
}

// NewProblem validates inputs and assembles the instance. dropPenalty <= 0
// selects DefaultDropPenalty.
func NewProblem(locs []model.Location, vehicles []model.Vehicle, m *matrix.Matrices, dropPenalty int) (*Problem, error) {
	if len(locs) == 0 {
		return nil, &ValidationError{Reason: "no locations"}
	}
	if len(vehicles) == 0 {
		return nil, &ValidationError{Reason: "no vehicles selected"}
	}
	if m == nil || m.Dim() != len(locs) || len(m.DistM) != len(locs) {
		return nil, &ValidationError{Reason: fmt.Sprintf("matrix dimension does not match %d locations", len(locs))}
	}
	maxCap := 0
	for _, v := range vehicles {
		if v.Capacity <= 0 {
			return nil, &ValidationError{Reason: fmt.Sprintf("vehicle %s: capacity must be > 0", v.ID)}
		}
		if v.Capacity > maxCap {
			maxCap = v.Capacity
		}
	}
	for i, loc := range locs {
		if loc.Window.Start > loc.Window.End {
			return nil, &ValidationError{Reason: fmt.Sprintf("location %d (%s): window start after end", i, loc.Name)}
		}
		if loc.Window.End > HorizonMin {
			return nil, &ValidationError{Reason: fmt.Sprintf("location %d (%s): window end beyond %d-minute horizon", i, loc.Name, HorizonMin)}
		}
	}
	if dropPenalty < 0 {
		return nil, &ValidationError{Reason: "dropPenalty must be >= 0"}
	}
	if dropPenalty == 0 {
		dropPenalty = DefaultDropPenalty
	}

	p := &Problem{
		Locations:   locs,
		Vehicles:    vehicles,
		TimeMin:     m.TimeMin,
		DistM:       m.DistM,
		DropPenalty: dropPenalty,
		depot:       locs[0].Window,
	}
	for i := 1; i < len(locs); i++ {
		if locs[i].Demand > maxCap {
			p.Unservable = append(p.Unservable, i)
		} else {
			p.servable = append(p.servable, i)
		}
	}
	return p, nil
}

// Transit is the cost of the arc i->j: travel time plus the service time of
// the origin node. Charging service at the origin models "arrive, unload,
// depart"; waiting for a window to open is absorbed by schedule slack, not
// by transit cost.
func (p *Problem) Transit(i, j int) int {
	return p.TimeMin[i][j] + p.Locations[i].ServiceMin
}

// DepotWindow is the shift window every vehicle must start and end inside.
func (p *Problem) DepotWindow() model.TimeWindow { return p.depot }
